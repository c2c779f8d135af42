package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokens signs and parses the session cookie. The token only
// carries the session ID; everything else lives in the session row so
// it can be revoked server-side.
type SessionTokens struct {
	Secret []byte
	Issuer string
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Sign produces the cookie token for a session.
func (ts SessionTokens) Sign(sessionID, email string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Parse validates the cookie token and returns the session ID it
// names. An expired or tampered token yields ErrNoSession.
func (ts SessionTokens) Parse(tokenString string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		// enforce HS256
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return ts.Secret, nil
	})
	if err != nil {
		return "", ErrNoSession
	}

	claims, ok := tok.Claims.(*sessionClaims)
	if !ok || !tok.Valid || claims.SessionID == "" {
		return "", ErrNoSession
	}

	return claims.SessionID, nil
}
