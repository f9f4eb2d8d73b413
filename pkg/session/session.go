// Package session is the single source of truth for identity and
// conversation history. State is durable across restarts and shared
// across cooperating surfaces through a common Store backend.
//
// The Manager is the only writer: messages are append-only and
// monotonically ordered for the lifetime of a session.
package session

import (
	"time"

	"github.com/bmolabs/companion/pkg/mood"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is the durable identity record. It is created once per
// device profile; only UserName changes after creation, and only
// through onboarding.
type Session struct {
	// ID uniquely identifies the session across surfaces.
	ID string `json:"session_id"`

	// UserName is the onboarded user name, empty until set.
	UserName string `json:"user_name,omitempty"`

	// CreatedAt is when the session identity was fabricated.
	CreatedAt time.Time `json:"created_at"`
}

// Message is one entry in the conversation log. Messages are never
// mutated after append except for the deferred Emotion stamp on
// assistant messages.
type Message struct {
	// Role is "user" or "assistant".
	Role Role `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Emotion is the inferred emotion label for assistant messages,
	// empty until reconciliation stamps it.
	Emotion mood.Label `json:"emotion,omitempty"`

	// TurnID links the message to the turn that produced it.
	TurnID int `json:"turn_id"`
}

// State is the full persisted record: identity plus history.
type State struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages"`
}

// Clone returns a deep copy of the state, safe to hand to callers.
func (s *State) Clone() *State {
	out := &State{Session: s.Session}
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

// MaxTurnID returns the highest turn ID present in the history, or 0
// when the history is empty.
func (s *State) MaxTurnID() int {
	max := 0
	for _, m := range s.Messages {
		if m.TurnID > max {
			max = m.TurnID
		}
	}
	return max
}
