package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	ts := SessionTokens{Secret: []byte("secret"), Issuer: "radar"}

	token, err := ts.Sign("8e718a2f-9b5c-4f43-b2a8-000000000001", "marie@example.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	sessionID, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "8e718a2f-9b5c-4f43-b2a8-000000000001", sessionID)
}

func TestSessionTokenExpired(t *testing.T) {
	ts := SessionTokens{Secret: []byte("secret"), Issuer: "radar"}

	token, err := ts.Sign("8e718a2f-9b5c-4f43-b2a8-000000000001", "marie@example.com", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ts.Parse(token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionTokenWrongSecret(t *testing.T) {
	signer := SessionTokens{Secret: []byte("secret-a"), Issuer: "radar"}
	parser := SessionTokens{Secret: []byte("secret-b"), Issuer: "radar"}

	token, err := signer.Sign("8e718a2f-9b5c-4f43-b2a8-000000000001", "marie@example.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = parser.Parse(token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionTokenGarbage(t *testing.T) {
	ts := SessionTokens{Secret: []byte("secret"), Issuer: "radar"}

	_, err := ts.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrNoSession)
}
