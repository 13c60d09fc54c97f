package app

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no valid principal identity is
	// present on the request.
	ErrUnauthenticated = errors.New("app: unauthenticated")

	// ErrPermissionDenied is returned when an authenticated principal is
	// not authorized for the requested calendar and action. The message
	// deliberately does not say which calendars exist.
	ErrPermissionDenied = errors.New("app: permission denied")

	// ErrNotFound is returned when the referenced calendar, event or task
	// does not exist upstream.
	ErrNotFound = errors.New("app: not found")

	// ErrUpstream is returned for unclassified provider failures. Provider
	// detail is logged server-side, never echoed to the caller.
	ErrUpstream = errors.New("app: upstream provider error")
)

// ValidationError carries field-level input problems detected at the API
// boundary. Validation failures are rejected before any upstream call.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	for field, msg := range v.FieldErrors {
		return fmt.Sprintf("validation failed: %s: %s", field, msg)
	}
	return "validation failed"
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) hasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// validationErrorf builds a single-field ValidationError.
func validationErrorf(field, format string, args ...any) *ValidationError {
	v := &ValidationError{}
	v.add(field, fmt.Sprintf(format, args...))
	return v
}
