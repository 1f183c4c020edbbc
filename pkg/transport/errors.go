package transport

import (
	"errors"
	"fmt"
)

// Predefined errors for the transport package.
var (
	// ErrInvalidEndpoint is returned when the configured endpoint is not a
	// usable http(s) URL.
	ErrInvalidEndpoint = errors.New("invalid API endpoint")

	// ErrMissingPersonalAPIKey is returned when a definitions fetch is
	// attempted without a personal API key configured.
	ErrMissingPersonalAPIKey = errors.New("personal API key is required to fetch flag definitions")
)

// APIError is a non-2xx response from the Lumetric API. Body holds a
// truncated, sanitized excerpt of the response for log context.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code. It lets callers classify
// failures via errors.As without importing this package's concrete type.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}
