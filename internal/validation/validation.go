// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field limits mirrored by the column sizes in the schema.
const (
	UsernameMinLen = 2
	UsernameMaxLen = 20
	EmailMaxLen    = 120
	TitleMaxLen    = 100

	// bcrypt only reads the first 72 bytes and x/crypto rejects longer input.
	PasswordMaxBytes     = 72
	StrictPasswordMinLen = 12
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)
	digitRegex    = regexp.MustCompile(`[0-9]`)
	specialRegex  = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

// ValidateUsername checks length and allowed characters.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < UsernameMinLen || n > UsernameMaxLen {
		return fmt.Errorf("username must be between %d and %d characters long", UsernameMinLen, UsernameMaxLen)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > EmailMaxLen {
		return fmt.Errorf("email must not exceed %d characters", EmailMaxLen)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword applies the basic policy: present and hashable.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) > PasswordMaxBytes {
		return fmt.Errorf("password must not exceed %d bytes", PasswordMaxBytes)
	}
	return nil
}

// ValidateStrictPassword additionally requires length and character classes.
func ValidateStrictPassword(password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if utf8.RuneCountInString(password) < StrictPasswordMinLen {
		return fmt.Errorf("password must be at least %d characters long", StrictPasswordMinLen)
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !specialRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}
	return nil
}

// ValidatePasswordConfirmation checks the repeated password field.
func ValidatePasswordConfirmation(password, confirm string) error {
	if password != confirm {
		return fmt.Errorf("passwords must match")
	}
	return nil
}

// ValidatePost checks a post title and body.
func ValidatePost(title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > TitleMaxLen {
		return fmt.Errorf("title must not exceed %d characters", TitleMaxLen)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// ValidateComment checks a comment body.
func ValidateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("comment cannot be empty")
	}
	return nil
}

// ValidateSearchQuery checks the username search term.
func ValidateSearchQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("search term is required")
	}
	if utf8.RuneCountInString(q) > UsernameMaxLen {
		return fmt.Errorf("search term must not exceed %d characters", UsernameMaxLen)
	}
	return nil
}
