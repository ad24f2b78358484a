package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error returns the server's message, or a generic status line when the
// response carried none.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match rejected credentials.
func (e *APIError) Is(target error) bool {
	if target == ErrUnauthorized {
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// Sentinel errors for common API error cases.
var (
	// ErrUnauthorized matches any 401 or 403 APIError.
	ErrUnauthorized = errors.New("api: unauthorized")

	// ErrMalformedResponse wraps success bodies that are not valid JSON
	// of the expected shape.
	ErrMalformedResponse = errors.New("api: malformed response")
)

// Message normalizes err into one line suitable for showing next to the
// form or list that failed. fallback is used when err carries no usable text.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}

	if errors.Is(err, ErrMalformedResponse) {
		return fallback
	}

	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "Network error: request timed out"
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return "Network error: unable to reach the server"
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// parseError builds an APIError from a non-2xx response body.
func parseError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}
	var payload MessageResponse
	if err := decodeJSON(body, &payload); err == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}
