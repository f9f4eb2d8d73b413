// Package stt provides the client side of the speech-to-text
// collaborator.
//
// A transcript may legitimately be empty: the service detected no
// speech in the recording. Callers must treat that as "nothing said",
// not as a failure.
package stt

import (
	"context"
	"errors"
	"fmt"
)

// Transcriber converts a recorded audio payload into text.
type Transcriber interface {
	// Transcribe returns the recognized text, or "" when no speech
	// was detected.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Sentinel errors for the stt package.
var (
	// ErrNoBaseURL is returned when the service base URL is missing.
	ErrNoBaseURL = errors.New("stt: base URL required")

	// ErrEmptyAudio is returned when there is nothing to transcribe.
	ErrEmptyAudio = errors.New("stt: empty audio payload")
)

// APIError represents an error response from the transcription API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stt: API error %d: %s", e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
