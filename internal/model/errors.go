package model

import (
	"context"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store error taxonomy. Errors returned by Store methods wrap one of these,
// test with errors.Is.
var (
	// ErrConstraintViolation is returned when a write breaks a table
	// constraint, e.g. inserting a post whose id is already taken.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrStorage is returned for any other driver or I/O failure.
	ErrStorage = errors.New("storage error")

	// ErrNotFound is returned when the targeted row does not exist.
	ErrNotFound = errors.New("post not found")
)

// classify wraps a driver error with the matching sentinel.
// Context cancellation is passed through unchanged so callers can tell a
// deactivated subscription apart from a broken database.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
