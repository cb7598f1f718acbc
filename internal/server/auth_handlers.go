package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerForm struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type loginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Remember string `json:"remember" form:"remember"`
}

type resetRequestForm struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordForm struct {
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// RegisterForm describes the sign-up form.
func (s *Server) RegisterForm(c *fiber.Ctx) error {
	return formPage(c, "Register", []string{"username", "email", "password", "confirm_password"})
}

// Register creates an account and sends the user to the login page.
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return respondError(c, err)
	}

	return flashRedirect(c, fiber.StatusCreated, "success",
		"Your account has been created! You are now able to log in", "/login",
		fiber.Map{"user": user})
}

// LoginForm describes the login form.
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return formPage(c, "Login", []string{"email", "password", "remember"})
}

// Login checks credentials and sets the session cookie.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}

	user, session, err := s.authService.Login(c.UserContext(), req.Email, req.Password, formBool(req.Remember))
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return flashRedirect(c, fiber.StatusUnauthorized, "danger",
			"Login Unsuccessful. Please check email and password", "/login")
	}

	s.setSessionCookie(c, session.Token, session.ExpiresAt, session.Persistent)
	middleware.Logger.InfoContext(c.UserContext(), "user logged in", "user_id", user.ID)

	target := "/home"
	if next := c.Query("next"); isLocalPath(next) {
		target = next
	}
	return flashRedirect(c, fiber.StatusOK, "success", "You have been logged in!", target, fiber.Map{
		"user":       user,
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

// Logout revokes the current session, if any, and clears the cookie.
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := currentSession(c); claims != nil {
		_ = s.authService.Logout(c.UserContext(), claims)
	}
	s.clearSessionCookie(c)
	return redirectTo(c, "/home")
}

// ResetRequestForm describes the "forgot password" form.
func (s *Server) ResetRequestForm(c *fiber.Ctx) error {
	return formPage(c, "Reset Password", []string{"email"})
}

// ResetRequest mails a reset link. The response is the same whether or not
// the address belongs to an account.
func (s *Server) ResetRequest(c *fiber.Ctx) error {
	var req resetRequestForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := s.authService.RequestReset(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return flashRedirect(c, fiber.StatusOK, "info",
		"An email has been sent with instructions to reset your password.", "/login")
}

// ResetTokenForm checks the token before showing the new-password form.
func (s *Server) ResetTokenForm(c *fiber.Ctx) error {
	user, err := s.authService.VerifyResetToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return invalidResetToken(c)
	}
	return formPage(c, "Reset Password", []string{"password", "confirm_password"})
}

// ResetToken stores a new password for the user the token was issued to.
func (s *Server) ResetToken(c *fiber.Ctx) error {
	var req resetPasswordForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}

	_, err := s.authService.ResetPassword(c.UserContext(), c.Params("token"), req.Password, req.ConfirmPassword)
	if service.IsInvalidResetToken(err) {
		return invalidResetToken(c)
	}
	if err != nil {
		return respondError(c, err)
	}
	return flashRedirect(c, fiber.StatusOK, "success",
		"Your password has been updated! You are now able to log in", "/login")
}

func invalidResetToken(c *fiber.Ctx) error {
	return flashRedirect(c, fiber.StatusBadRequest, "warning",
		"That is an invalid or expired token", "/reset_password")
}

// isLocalPath accepts only same-site absolute paths as redirect targets.
func isLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && (len(p) == 1 || (p[1] != '/' && p[1] != '\\'))
}
