package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Code layout constants.
const (
	jtiSize     = 16 // UUID binary size
	expSize     = 8  // Unix timestamp big-endian
	sigSize     = 16 // Truncated HMAC-SHA256
	headerSize  = jtiSize + expSize
	minCodeSize = headerSize + 1 + sigSize // at least one email byte
)

// CodePayload contains the decoded login-code data.
type CodePayload struct {
	JTI       string
	Email     string
	ExpiresAt time.Time
}

// CodeService issues and verifies single-use login codes. A code binds
// a random JTI, an expiry and the email into one HMAC-signed blob; the
// JTI is what the consumed-codes table remembers.
type CodeService struct {
	secret []byte
	ttl    time.Duration
}

// NewCodeService creates a code service with the given secret and TTL.
func NewCodeService(secret string, ttl time.Duration) *CodeService {
	return &CodeService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate creates a signed login code for the given email.
func (s *CodeService) Generate(email string) (string, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return "", ErrInvalidEmail
	}

	jti := uuid.New()

	// Build payload: jti (16) | exp (8) | email (variable)
	payload := make([]byte, headerSize+len(email))
	copy(payload[0:jtiSize], jti[:])

	exp := time.Now().Add(s.ttl).Unix()

	//nolint:gosec // Unix timestamps fit safely in uint64 for foreseeable future
	binary.BigEndian.PutUint64(payload[jtiSize:headerSize], uint64(exp))

	copy(payload[headerSize:], email)

	sig := s.sign(payload)

	code := make([]byte, len(payload)+sigSize)
	copy(code, payload)
	copy(code[len(payload):], sig[:sigSize])

	return base64.URLEncoding.EncodeToString(code), nil
}

// Verify validates and decodes a login code. The signature is checked
// before the expiry so a tampered code never reads as merely expired.
func (s *CodeService) Verify(code string) (*CodePayload, error) {
	data, err := base64.URLEncoding.DecodeString(code)
	if err != nil {
		return nil, ErrCodeInvalid
	}

	if len(data) < minCodeSize {
		return nil, ErrCodeInvalid
	}

	payload := data[:len(data)-sigSize]
	providedSig := data[len(data)-sigSize:]

	expectedSig := s.sign(payload)
	if !hmac.Equal(providedSig, expectedSig[:sigSize]) {
		return nil, ErrCodeInvalid
	}

	var jti uuid.UUID

	copy(jti[:], payload[0:jtiSize])

	//nolint:gosec // Unix timestamps fit in int64 for foreseeable future
	exp := int64(binary.BigEndian.Uint64(payload[jtiSize:headerSize]))
	expiresAt := time.Unix(exp, 0)

	if time.Now().After(expiresAt) {
		return nil, ErrCodeExpired
	}

	return &CodePayload{
		JTI:       jti.String(),
		Email:     string(payload[headerSize:]),
		ExpiresAt: expiresAt,
	}, nil
}

// sign computes HMAC-SHA256 of the payload.
func (s *CodeService) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)

	return mac.Sum(nil)
}

// NormalizeEmail lowercases and trims an address so the same mailbox
// always maps to the same identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is a minimal sanity check; the real proof of ownership is
// clicking the link delivered to the mailbox.
func ValidEmail(email string) bool {
	at := strings.Index(email, "@")

	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
