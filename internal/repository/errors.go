// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique-constraint failure and, if
// the driver exposes it, which constraint or column was hit.
func uniqueViolation(err error) (bool, string) {
	if err == nil {
		return false, ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true, pgErr.ConstraintName
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, ""
	}
	// sqlite: "UNIQUE constraint failed: users.email"
	if msg := err.Error(); strings.Contains(msg, "UNIQUE constraint failed") {
		return true, msg
	}
	return false, ""
}
