package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Session is one persisted sign-in. A session is live until it expires
// or RevokedAt is set; the guard re-checks the row on every request so
// a remote revocation takes effect immediately.
type Session struct {
	ID        string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt time.Time
}

// Revoked reports whether the session has been explicitly revoked.
func (s *Session) Revoked() bool {
	return !s.RevokedAt.IsZero()
}

// CreateSession records a new session.
func (db *DB) CreateSession(ctx context.Context, id, email string, expiresAt time.Time) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO sessions (id, email, expires_at)
		VALUES ($1, $2, $3)
	`, toUUID(id), email, toTimestamptz(expiresAt)); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetSession returns the session row, or nil when no row matches.
func (db *DB) GetSession(ctx context.Context, id string) (*Session, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, email, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = $1
	`, toUUID(id))

	var (
		sessionID pgtype.UUID
		email     string
		createdAt pgtype.Timestamptz
		expiresAt pgtype.Timestamptz
		revokedAt pgtype.Timestamptz
	)

	err := row.Scan(&sessionID, &email, &createdAt, &expiresAt, &revokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &Session{
		ID:        fromUUID(sessionID),
		Email:     email,
		CreatedAt: fromTimestamptz(createdAt),
		ExpiresAt: fromTimestamptz(expiresAt),
		RevokedAt: fromTimestamptz(revokedAt),
	}, nil
}

// RevokeSession marks a session as signed out. Revoking an already
// revoked or unknown session is a no-op.
func (db *DB) RevokeSession(ctx context.Context, id string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE sessions
		SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL
	`, toUUID(id)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// ConsumeLoginCode marks a single-use login code as spent. It returns
// false when the code was already consumed, which the caller must treat
// as an invalid code.
func (db *DB) ConsumeLoginCode(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO consumed_login_codes (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, toUUID(jti), toTimestamptz(expiresAt))
	if err != nil {
		return false, fmt.Errorf("consume login code: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// PruneConsumedCodes deletes consumed-code guards whose codes have long
// expired; the signature check alone rejects them afterwards.
func (db *DB) PruneConsumedCodes(ctx context.Context, before time.Time) error {
	if _, err := db.Pool.Exec(ctx, `
		DELETE FROM consumed_login_codes
		WHERE expires_at < $1
	`, toTimestamptz(before)); err != nil {
		return fmt.Errorf("prune consumed codes: %w", err)
	}

	return nil
}
