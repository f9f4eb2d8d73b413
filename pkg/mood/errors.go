package mood

import (
	"errors"
	"fmt"
)

// Sentinel errors for the mood package.
var (
	// ErrNoBaseURL is returned when a remote analyzer has no base URL.
	ErrNoBaseURL = errors.New("mood: base URL required")

	// ErrNoAnalyzers is returned when a chain is built without analyzers.
	ErrNoAnalyzers = errors.New("mood: at least one analyzer required")
)

// APIError represents an error response from the emotion backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the backend.
	Message string

	// Provider identifies which analyzer returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("mood [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ProviderError wraps an error with analyzer context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("mood [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with analyzer context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
