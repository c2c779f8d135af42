package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	db "github.com/cdb-lab/product-radar/internal/storage"
)

// Store is the persistence the auth service needs.
type Store interface {
	CreateSession(ctx context.Context, id, email string, expiresAt time.Time) error
	GetSession(ctx context.Context, id string) (*db.Session, error)
	RevokeSession(ctx context.Context, id string) error
	ConsumeLoginCode(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
}

// Options configures the auth service.
type Options struct {
	Secret     string
	BaseURL    string
	Issuer     string
	CodeTTL    time.Duration
	SessionTTL time.Duration
}

// Service is the database-backed Provider.
type Service struct {
	store      Store
	codes      *CodeService
	tokens     SessionTokens
	hub        *Hub
	baseURL    string
	sessionTTL time.Duration
	logger     *zerolog.Logger
}

// NewService creates the auth service.
func NewService(store Store, opts Options, logger *zerolog.Logger) *Service {
	return &Service{
		store:      store,
		codes:      NewCodeService(opts.Secret, opts.CodeTTL),
		tokens:     SessionTokens{Secret: []byte(opts.Secret), Issuer: opts.Issuer},
		hub:        NewHub(),
		baseURL:    opts.BaseURL,
		sessionTTL: opts.SessionTTL,
		logger:     logger,
	}
}

// Hub exposes the session-event hub for the websocket endpoint.
func (s *Service) Hub() *Hub {
	return s.hub
}

// MagicLink issues a single-use sign-in link for the email.
func (s *Service) MagicLink(_ context.Context, email string) (string, error) {
	code, err := s.codes.Generate(email)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("email", NormalizeEmail(email)).Msg("issued magic link")

	return fmt.Sprintf("%s/auth/callback?code=%s", s.baseURL, url.QueryEscape(code)), nil
}

// ExchangeCode trades a login code for a session and its cookie token.
// The JTI is burned before the session is created, so replaying the
// same link fails with ErrCodeUsed.
func (s *Service) ExchangeCode(ctx context.Context, code string) (*Session, string, error) {
	payload, err := s.codes.Verify(code)
	if err != nil {
		return nil, "", err
	}

	fresh, err := s.store.ConsumeLoginCode(ctx, payload.JTI, payload.ExpiresAt)
	if err != nil {
		return nil, "", fmt.Errorf("consuming login code: %w", err)
	}

	if !fresh {
		return nil, "", ErrCodeUsed
	}

	sessionID := uuid.NewString()
	expiresAt := time.Now().Add(s.sessionTTL)

	if err := s.store.CreateSession(ctx, sessionID, payload.Email, expiresAt); err != nil {
		return nil, "", fmt.Errorf("creating session: %w", err)
	}

	token, err := s.tokens.Sign(sessionID, payload.Email, expiresAt)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info().Str("email", payload.Email).Msg("session created")

	return &Session{ID: sessionID, Email: payload.Email, ExpiresAt: expiresAt}, token, nil
}

// SessionFromToken resolves a cookie token to a live session.
func (s *Service) SessionFromToken(ctx context.Context, token string) (*Session, error) {
	sessionID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	record, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if record == nil {
		return nil, ErrNoSession
	}

	if record.Revoked() {
		return nil, ErrSessionRevoked
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, ErrNoSession
	}

	return &Session{ID: record.ID, Email: record.Email, ExpiresAt: record.ExpiresAt}, nil
}

// SignOut revokes the session behind the token and pushes a signed_out
// event to its open connections. Signing out with a dead token is not
// an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sessionID, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}

	if err := s.store.RevokeSession(ctx, sessionID); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	s.hub.SignedOut(sessionID)
	s.logger.Info().Str("session_id", sessionID).Msg("session revoked")

	return nil
}
