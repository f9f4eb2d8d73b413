// Package hub fans sync events out to every connected surface over
// websockets, using a channel-based broadcast loop. Surfaces that fall
// behind are dropped rather than allowed to stall the rest. The feed
// is one-way: surfaces only receive.
package hub

import (
	"encoding/base64"
	"time"
)

// Event kinds carried on the sync feed.
const (
	// EventSession signals that session identity or history changed;
	// surfaces should re-read the session endpoint.
	EventSession = "session"
	// EventMessage signals one appended or stamped message.
	EventMessage = "message"
	// EventMood carries the avatar's new mood label.
	EventMood = "mood"
	// EventSpeak carries synthesized audio for surfaces that play
	// locally.
	EventSpeak = "speak"
	// EventState carries the turn orchestrator's state name.
	EventState = "state"
)

// Event is one entry on the sync feed.
type Event struct {
	Kind string `json:"kind"`

	// Mood is set for mood events.
	Mood string `json:"mood,omitempty"`

	// Face is the avatar asset for mood events.
	Face string `json:"face,omitempty"`

	// State is set for state events.
	State string `json:"state,omitempty"`

	// Audio is base64-encoded clip data for speak events.
	Audio string `json:"audio,omitempty"`

	// ContentType is the clip MIME type for speak events.
	ContentType string `json:"content_type,omitempty"`

	// DurationMs is the estimated clip length for speak events.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// SessionEvent tells surfaces to re-read session state.
func SessionEvent() Event {
	return Event{Kind: EventSession}
}

// MessageEvent signals new or updated history.
func MessageEvent() Event {
	return Event{Kind: EventMessage}
}

// MoodEvent carries a mood change.
func MoodEvent(label, face string) Event {
	return Event{Kind: EventMood, Mood: label, Face: face}
}

// StateEvent carries a turn-state change.
func StateEvent(state string) Event {
	return Event{Kind: EventState, State: state}
}

// SpeakEvent carries an audio clip.
func SpeakEvent(audio []byte, contentType string, duration time.Duration) Event {
	return Event{
		Kind:        EventSpeak,
		Audio:       base64.StdEncoding.EncodeToString(audio),
		ContentType: contentType,
		DurationMs:  duration.Milliseconds(),
	}
}
