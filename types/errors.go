package types

import (
	"errors"
	"fmt"
)

// ErrInvalidCatalog marks every catalog validation failure.
var ErrInvalidCatalog = errors.New("embers: invalid catalog")

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("embers: validation failed for %s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidCatalog.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidCatalog
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "embers: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("embers: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// Addf adds a ValidationError for field.
func (e *MultiError) Addf(field, format string, args ...any) {
	e.Add(ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Err returns e as an error, or nil when nothing was collected.
func (e MultiError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}
