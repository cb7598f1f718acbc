package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/featureflags"
	"inkwell/internal/mailer"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// ErrInvalidResetToken is returned by ResetPassword for expired, tampered or
// otherwise unusable reset tokens.
var ErrInvalidResetToken = &models.AppError{
	Code:    models.CodeValidation,
	Message: "That is an invalid or expired token",
}

// ErrInvalidSession is returned when a session token cannot be used.
var ErrInvalidSession = models.NewUnauthorizedError("Please log in to access this page.")

// AuthSettings are the tunables of AuthService.
type AuthSettings struct {
	ResetTokenTTL time.Duration
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	PublicBaseURL string
}

// AuthService covers registration, login sessions and password resets.
type AuthService struct {
	users    repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenManager
	revoked  *cache.RevocationList
	mail     mailer.Mailer
	flags    *featureflags.Manager
	settings AuthSettings
}

// NewAuthService returns a new AuthService.
func NewAuthService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	revoked *cache.RevocationList,
	mail mailer.Mailer,
	flags *featureflags.Manager,
	settings AuthSettings,
) *AuthService {
	if settings.ResetTokenTTL <= 0 {
		settings.ResetTokenTTL = 1800 * time.Second
	}
	if settings.SessionTTL <= 0 {
		settings.SessionTTL = 24 * time.Hour
	}
	if settings.RememberTTL <= 0 {
		settings.RememberTTL = 30 * 24 * time.Hour
	}
	settings.PublicBaseURL = strings.TrimRight(settings.PublicBaseURL, "/")
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		revoked:  revoked,
		mail:     mail,
		flags:    flags,
		settings: settings,
	}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register creates an account with a hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "auth", "Register")
	defer func() {
		finish(err)
		observability.AuthEvents.WithLabelValues("register", outcome(err)).Inc()
	}()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.validatePassword(in.Password, in.ConfirmPassword, 0); err != nil {
		return nil, err
	}

	// Friendly pre-check; the unique indexes remain the final arbiter.
	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewValidationError(repository.MsgUsernameTaken)
	}
	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewValidationError(repository.MsgEmailTaken)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user = &models.User{Username: in.Username, Email: in.Email, Password: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate returns the user matching email and password, or nil when
// either is wrong. Only store failures produce an error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(user.Password, password) {
		return nil, nil
	}
	return user, nil
}

// Session is an issued login session.
type Session struct {
	Token      string
	ExpiresAt  time.Time
	Persistent bool
}

// Login authenticates and issues a session. A nil user means bad credentials.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool) (*models.User, *Session, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		observability.AuthEvents.WithLabelValues("login", "error").Inc()
		return nil, nil, err
	}
	if user == nil {
		observability.AuthEvents.WithLabelValues("login", "rejected").Inc()
		return nil, nil, nil
	}

	session, err := s.IssueSession(user, remember)
	if err != nil {
		observability.AuthEvents.WithLabelValues("login", "error").Inc()
		return nil, nil, err
	}
	observability.AuthEvents.WithLabelValues("login", "ok").Inc()
	return user, session, nil
}

// IssueSession mints a session token for user. remember selects the long TTL.
func (s *AuthService) IssueSession(user *models.User, remember bool) (*Session, error) {
	ttl := s.settings.SessionTTL
	if remember {
		ttl = s.settings.RememberTTL
	}
	token, claims, err := s.tokens.IssueSession(user.ID, user.Username, ttl)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, Persistent: remember}, nil
}

// ResolveSession validates a session token and rejects logged-out ones.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*auth.SessionClaims, error) {
	claims, err := s.tokens.ParseSession(token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if s.revoked.IsRevoked(ctx, claims.ID) {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Logout revokes the session until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *auth.SessionClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	observability.AuthEvents.WithLabelValues("logout", outcome(err)).Inc()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke session", "error", err)
	}
	return nil
}

// IssueResetToken mints a reset token for user valid for ttl.
func (s *AuthService) IssueResetToken(user *models.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.settings.ResetTokenTTL
	}
	token, err := s.tokens.IssueReset(user.ID, user.Password, ttl)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

// ResetLink is the external URL for token.
func (s *AuthService) ResetLink(token string) string {
	return s.settings.PublicBaseURL + "/reset_password/" + token
}

// RequestReset e-mails a reset link when email belongs to an account. Unknown
// addresses are not reported to the caller.
func (s *AuthService) RequestReset(ctx context.Context, email string) (err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "auth", "RequestReset")
	defer func() {
		finish(err)
		observability.AuthEvents.WithLabelValues("reset_request", outcome(err)).Inc()
	}()

	email = strings.TrimSpace(email)
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError(err.Error())
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		middleware.Logger.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}

	token, err := s.IssueResetToken(user, s.settings.ResetTokenTTL)
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, mailer.PasswordResetMessage(user.Email, s.ResetLink(token))); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// VerifyResetToken returns the user a reset token was issued for, or nil when
// the token is expired, tampered, malformed, names an unknown user or predates
// the user's current password.
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.ParseReset(token)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "reset token rejected", "reason", err.Error())
		return nil, nil
	}
	id, _ := claims.UserID()
	cached, err := s.users.GetByID(ctx, id)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	// The cached copy has no password hash; reload the row to compare it.
	user, err := s.users.GetByEmail(ctx, cached.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID != id || !claims.MatchesPassword(user.Password) {
		middleware.Logger.DebugContext(ctx, "reset token rejected", "reason", "password changed since issue")
		return nil, nil
	}
	return user, nil
}

// ResetPassword verifies token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) (user *models.User, err error) {
	defer func() {
		observability.AuthEvents.WithLabelValues("reset_password", outcome(err)).Inc()
	}()

	user, err = s.VerifyResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidResetToken
	}
	if err := s.validatePassword(password, confirm, user.ID); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) validatePassword(password, confirm string, userID uint) error {
	check := validation.ValidatePassword
	if s.flags.Enabled(featureflags.StrictPasswords, userID) {
		check = validation.ValidateStrictPassword
	}
	if err := check(password); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePasswordConfirmation(password, confirm); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// IsInvalidResetToken reports whether err is ErrInvalidResetToken.
func IsInvalidResetToken(err error) bool {
	return errors.Is(err, ErrInvalidResetToken)
}
