package errors

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrNotFound is returned when no analysis exists for an id
	ErrNotFound = errors.New("analysis not found")

	// ErrInvalidTransition is returned when a finished analysis is updated again
	ErrInvalidTransition = errors.New("analysis is no longer processing")
)

// ValidationError reports malformed or missing client input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for the given field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// New creates a new instance of the base error
func New(msg string) error {
	return fmt.Errorf("%s: %s", msg, filePath())
}

// Wrap creates a new error of the wrapped error
func Wrap(err error, msg string) error {
	return fmt.Errorf("%s %s \ncaused by: %w", msg, filePath(), err)
}

// Is checks if the error is equal to the target
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As returns the wrapped error
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Errorf(format string, args ...interface{}) error {
	args = append(args, filePath())
	return fmt.Errorf(format+` %s`, args...)
}

func filePath() string {
	pc, f, l, ok := runtime.Caller(2)
	fn := `unknown`
	if ok {
		fn = runtime.FuncForPC(pc).Name()
	}
	return fmt.Sprintf("at %s\n\t%s:%d", fn, f, l)
}
