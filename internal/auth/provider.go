// Package auth implements email-based sign-in with single-use login
// codes, signed session cookies and remote session revocation.
package auth

import (
	"context"
	"errors"
	"time"
)

// Auth errors. Handlers map these to user-facing responses; anything
// else is an internal failure.
var (
	ErrNoSession      = errors.New("no active session")
	ErrSessionRevoked = errors.New("session revoked")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrCodeInvalid    = errors.New("invalid login code")
	ErrCodeExpired    = errors.New("login code expired")
	ErrCodeUsed       = errors.New("login code already used")
)

// Session is the authenticated identity attached to a request.
type Session struct {
	ID        string
	Email     string
	ExpiresAt time.Time
}

// Provider is the sign-in surface the web layer depends on. Handlers
// never talk to the session store directly, so tests can swap in a
// fake provider.
type Provider interface {
	// MagicLink issues a single-use sign-in link for the email.
	MagicLink(ctx context.Context, email string) (string, error)

	// ExchangeCode trades a login code for a session and its cookie
	// token. Each code works exactly once.
	ExchangeCode(ctx context.Context, code string) (*Session, string, error)

	// SessionFromToken resolves a cookie token to a live session. The
	// session row is re-checked on every call so a revocation from
	// another device takes effect immediately.
	SessionFromToken(ctx context.Context, token string) (*Session, error)

	// SignOut revokes the session behind the token and notifies its
	// open connections.
	SignOut(ctx context.Context, token string) error
}
