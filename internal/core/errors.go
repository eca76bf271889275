package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced dispatch entry or binding does
	// not exist (anymore). Under at-least-once delivery this is an expected
	// outcome of retried confirms, not a protocol violation.
	ErrNotFound = errors.New("not found")

	// ErrInvalidMethod indicates an unknown delivery method.
	ErrInvalidMethod = errors.New("invalid delivery method")

	// ErrEmptyMessage indicates a submission without message text.
	ErrEmptyMessage = errors.New("message text is required")
)

// ValidationError describes a rejected field in a settings update.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
