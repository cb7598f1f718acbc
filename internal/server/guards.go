package server

import (
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie carries the session token.
const SessionCookie = "session"

const (
	localsUserID  = "userID"
	localsUser    = "user"
	localsSession = "session"
)

// Identify resolves the session cookie or Bearer token into the current user.
// Invalid, revoked or orphaned sessions leave the request anonymous.
func (s *Server) Identify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := sessionToken(c)
		if token == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		claims, err := s.authService.ResolveSession(ctx, token)
		if err != nil {
			return c.Next()
		}
		userID, err := claims.UserID()
		if err != nil {
			return c.Next()
		}
		user, err := s.userService.GetAccount(ctx, userID)
		if err != nil {
			if !models.IsCode(err, models.CodeNotFound) {
				middleware.Logger.WarnContext(ctx, "session user lookup failed", "error", err)
			}
			return c.Next()
		}

		c.Locals(localsUserID, user.ID)
		c.Locals(localsUser, user)
		c.Locals(localsSession, claims)
		c.SetUserContext(middleware.WithUserID(ctx, user.ID))
		return c.Next()
	}
}

// AuthRequired rejects anonymous requests with 401.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := currentUserID(c); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":    "Please log in to access this page.",
				"code":     models.CodeUnauthorized,
				"flash":    flash{Category: "info", Message: "Please log in to access this page."},
				"redirect": "/login?next=" + c.Path(),
			})
		}
		return c.Next()
	}
}

// AnonymousOnly sends authenticated users home.
func (s *Server) AnonymousOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := currentUserID(c); ok {
			return redirectTo(c, "/home")
		}
		return c.Next()
	}
}

func sessionToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return c.Cookies(SessionCookie)
}

func currentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(localsUserID).(uint)
	return id, ok && id != 0
}

func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localsUser).(*models.User)
	return u
}

func currentSession(c *fiber.Ctx) *auth.SessionClaims {
	claims, _ := c.Locals(localsSession).(*auth.SessionClaims)
	return claims
}

// setSessionCookie stores token. Persistent sessions survive browser restarts.
func (s *Server) setSessionCookie(c *fiber.Ctx, token string, expires time.Time, persistent bool) {
	cookie := &fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if persistent {
		cookie.Expires = expires
	}
	c.Cookie(cookie)
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
