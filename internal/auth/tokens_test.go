package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

func TestResetToken_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret)

	token, err := m.IssueReset(42, "$2a$04$hash", 30*time.Minute)
	require.NoError(t, err)

	claims, err := m.ParseReset(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.MatchesPassword("$2a$04$hash"))
	assert.False(t, claims.MatchesPassword("$2a$04$other"))
}

func TestResetToken_UniquePerIssue(t *testing.T) {
	m := NewTokenManager(testSecret)
	a, err := m.IssueReset(42, "h", time.Hour)
	require.NoError(t, err)
	b, err := m.IssueReset(42, "h", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestResetToken_Expired(t *testing.T) {
	issuedAt := time.Now()
	m := NewTokenManager(testSecret).WithClock(func() time.Time { return issuedAt })

	token, err := m.IssueReset(42, "h", 1800*time.Second)
	require.NoError(t, err)

	later := m.WithClock(func() time.Time { return issuedAt.Add(1801 * time.Second) })
	_, err = later.ParseReset(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// Still valid just before the deadline
	almost := m.WithClock(func() time.Time { return issuedAt.Add(1790 * time.Second) })
	_, err = almost.ParseReset(token)
	assert.NoError(t, err)
}

func TestResetToken_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("another-secret-entirely-0123456789").IssueReset(42, "h", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret).ParseReset(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetToken_Rejections(t *testing.T) {
	m := NewTokenManager(testSecret)

	session, _, err := m.IssueSession(42, "alice", time.Hour)
	require.NoError(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, &ResetClaims{
		Purpose: PurposeResetPassword,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	valid, err := m.IssueReset(42, "h", time.Hour)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"session token", session},
		{"alg none", unsigned},
		{"tampered payload", tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ParseReset(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSessionToken(t *testing.T) {
	m := NewTokenManager(testSecret)

	token, claims, err := m.IssueSession(7, "bob", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	parsed, err := m.ParseSession(token)
	require.NoError(t, err)
	id, err := parsed.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.Equal(t, "bob", parsed.Username)
	assert.Equal(t, claims.ID, parsed.ID)

	reset, err := m.IssueReset(7, "h", time.Hour)
	require.NoError(t, err)
	_, err = m.ParseSession(reset)
	assert.ErrorIs(t, err, ErrInvalidToken, "reset tokens carry no session audience")

	expired, _, err := m.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).IssueSession(7, "bob", time.Hour)
	require.NoError(t, err)
	_, err = m.ParseSession(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)

	hash, err := h.Hash("s3cret-Password!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-Password!", hash)
	assert.True(t, h.Verify(hash, "s3cret-Password!"))
	assert.False(t, h.Verify(hash, "wrong"))
	assert.False(t, h.Verify("not-a-hash", "s3cret-Password!"))

	assert.Equal(t, 10, NewPasswordHasher(0).cost)
}
