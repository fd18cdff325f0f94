package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors forming the store's failure taxonomy. Handlers map
// these to HTTP statuses; anything not matching one of them is an
// internal storage failure.
var (
	// ErrNotFound: the referenced machine or user does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict: a unique constraint (name, code, api_key, username,
	// token) was violated. User-correctable.
	ErrConflict = errors.New("unique constraint violated")

	// ErrNoFields: a partial update carried no fields. Raised before any
	// storage call; a validation failure, not a storage error.
	ErrNoFields = errors.New("no fields provided for update")

	// ErrPostUpdateRead: the update itself succeeded but re-reading the
	// updated record failed.
	ErrPostUpdateRead = errors.New("failed to read record after update")
)

// FieldError reports a field that failed validation before being
// projected into an update or insert.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a request-shaped failure (empty
// update set or a bad field value).
func IsValidation(err error) bool {
	var fe *FieldError
	return errors.Is(err, ErrNoFields) || errors.As(err, &fe)
}

// isConflict classifies a storage error as a unique-constraint violation.
// gorm's translated error covers both drivers; the string checks are a
// fallback for driver versions that do not translate.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// conflictOr wraps a storage error into the taxonomy: conflicts become
// ErrConflict, everything else is wrapped as-is.
func conflictOr(err error, op string) error {
	if isConflict(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
