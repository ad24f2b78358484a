package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a form is submitted while its previous
	// submission is still in flight.
	ErrBusy = errors.New("a request is already in progress")

	// ErrInvalidTransition is returned for operations not allowed in the
	// current state.
	ErrInvalidTransition = errors.New("operation not allowed in the current state")

	// ErrUnexpectedResponse is returned when a login succeeds with neither a
	// token nor an OTP challenge.
	ErrUnexpectedResponse = errors.New("Unexpected login response. Try again.") //nolint:staticcheck // shown to users verbatim

	// ErrNoCredential is returned when OTP verification succeeds without a
	// token.
	ErrNoCredential = errors.New("No token received. Please try again.") //nolint:staticcheck // shown to users verbatim
)

// ValidationError reports a form field that failed client-side checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
