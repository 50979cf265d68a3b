// Package apperr defines the error taxonomy shared by the engine's packages.
//
// Pure components (grading, spacedrep, selector) only ever return
// ValidationError. The I/O boundary adds NotFound, Conflict and
// StoreUnavailable. Callers classify errors with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an item or user-scoped resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a versioned write loses an optimistic-lock race.
	// It is the only error the orchestrator retries on its own.
	ErrConflict = errors.New("concurrency conflict")

	// ErrStoreUnavailable is returned when the state store fails.
	ErrStoreUnavailable = errors.New("state store unavailable")
)

// ValidationError reports malformed or shape-mismatched input.
// It is always the caller's fault and is never retried.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError with a formatted message.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Unavailable wraps a store failure so that it matches ErrStoreUnavailable
// while keeping the underlying cause in the chain.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
