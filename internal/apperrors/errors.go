// Package apperrors defines the error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a referenced record does not exist
var ErrNotFound = errors.New("not found")

// ErrAccessDenied indicates the caller is not the owner of the resource
var ErrAccessDenied = errors.New("access denied")

// ValidationError carries a human-readable rejection reason.
// It is surfaced to the caller as a 422 and never leaves partial state behind.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation builds a ValidationError with a formatted message
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
