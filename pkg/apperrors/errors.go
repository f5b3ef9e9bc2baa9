package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInactiveSource         = errors.New("data source is inactive")
	ErrUnsupportedType        = errors.New("unsupported data source type")
	ErrUnsupportedOperation   = errors.New("operation not supported for this data source type")
	ErrTimeout                = errors.New("backend operation timed out")
	ErrCredentialsKeyMismatch = errors.New("connection config was encrypted with a different key")
)

// ValidationError reports a missing or invalid connection config field.
// It is surfaced at create/update time and never reaches a driver.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid connection config: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid connection config: missing required field %q", e.Field)
}

// NewValidationError returns a ValidationError for a missing required field.
func NewValidationError(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
