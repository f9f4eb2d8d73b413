// Package dialogue provides the client side of the dialogue
// collaborator: the service that turns an utterance into the
// assistant's reply.
//
// The bundled provider talks to an Ollama-compatible chat API with
// the assistant's fixed persona prompt. The provider boundary is
// deliberately thin: the orchestrator neither knows nor cares how the
// reply is produced.
package dialogue

import (
	"context"
	"errors"
	"fmt"
)

// Role values for history entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Exchange is one prior message handed to the provider as context.
type Exchange struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Query is one conversational request.
type Query struct {
	// Utterance is the user's effective input text.
	Utterance string

	// SessionID identifies the conversation.
	SessionID string

	// UserName is the onboarded name, empty before onboarding.
	UserName string

	// History is the recent conversation context, oldest first.
	History []Exchange
}

// Reply is the provider's answer.
type Reply struct {
	// Text is the assistant's reply text.
	Text string

	// EmotionHint is an optional emotion label suggested by the
	// provider. Empty when the provider offers none.
	EmotionHint string
}

// Provider produces a reply for an utterance. A Provider call always
// runs to completion or failure; there is no mid-call cancellation
// beyond the context.
type Provider interface {
	Converse(ctx context.Context, q Query) (*Reply, error)
}

// Sentinel errors for the dialogue package.
var (
	// ErrNoBaseURL is returned when the service base URL is missing.
	ErrNoBaseURL = errors.New("dialogue: base URL required")

	// ErrEmptyUtterance is returned when there is nothing to say.
	ErrEmptyUtterance = errors.New("dialogue: empty utterance")

	// ErrEmptyReply is returned when the provider answers with no text.
	ErrEmptyReply = errors.New("dialogue: provider returned empty reply")
)

// APIError represents an error response from the dialogue API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("dialogue: API error %d: %s", e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
