package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is the iss claim of every token minted by this service.
	Issuer = "inkwell"
	// SessionAudience is the aud claim of session tokens.
	SessionAudience = "inkwell-session"
	// PurposeResetPassword marks password reset tokens.
	PurposeResetPassword = "reset_password"
)

var (
	// ErrInvalidToken covers malformed, tampered and wrongly-scoped tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for well-signed tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")
)

// SessionClaims identify a logged-in user.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *SessionClaims) UserID() (uint, error) {
	return parseSubject(c.Subject)
}

// ResetClaims authorize a single password change for the subject. Password
// pins the token to the hash it was issued against, so a completed reset
// invalidates every outstanding token.
type ResetClaims struct {
	Purpose  string `json:"purpose"`
	Password string `json:"pwd"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *ResetClaims) UserID() (uint, error) {
	return parseSubject(c.Subject)
}

// MatchesPassword reports whether passwordHash is the hash the token was issued against.
func (c *ResetClaims) MatchesPassword(passwordHash string) bool {
	want := PasswordFingerprint(passwordHash)
	return subtle.ConstantTimeCompare([]byte(c.Password), []byte(want)) == 1
}

// PasswordFingerprint is a short digest of a stored password hash.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// TokenManager signs and verifies HS256 tokens with the process-wide secret.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager returns a TokenManager for secret.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy that reads time from now. Used to test expiry.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *m
	cp.now = now
	return &cp
}

// IssueSession mints a session token valid for ttl. The returned claims carry
// the jti and expiry needed for revocation.
func (m *TokenManager) IssueSession(userID uint, username string, ttl time.Duration) (string, *SessionClaims, error) {
	now := m.now()
	claims := &SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{SessionAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := m.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseSession validates a session token and returns its claims.
func (m *TokenManager) ParseSession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := m.parse(token, claims, jwt.WithAudience(SessionAudience)); err != nil {
		return nil, err
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueReset mints a password reset token for userID valid for ttl, bound to
// the user's current passwordHash.
func (m *TokenManager) IssueReset(userID uint, passwordHash string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &ResetClaims{
		Purpose:  PurposeResetPassword,
		Password: PasswordFingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return m.sign(claims)
}

// ParseReset validates a reset token's signature, expiry and purpose. The
// caller still has to check MatchesPassword against the stored hash.
func (m *TokenManager) ParseReset(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := m.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeResetPassword {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) sign(claims jwt.Claims) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("secret key not configured")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) parse(token string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	default:
		return ErrInvalidToken
	}
}

func parseSubject(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}
