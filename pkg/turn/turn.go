// Package turn sequences a conversational turn: accept input,
// transcribe it if spoken, send it to the dialogue service, narrate
// the reply, and reconcile the assistant's mood. Turns are strictly
// serialized; a submission while one is active is rejected before it
// touches the session store.
package turn

import (
	"errors"
)

// State is the orchestrator's position inside a turn.
type State int

const (
	// Idle means no turn is active.
	Idle State = iota
	// Dispatching covers transcription and the dialogue request setup.
	Dispatching
	// AwaitingReply means the dialogue call is in flight.
	AwaitingReply
	// Narrating means the reply is being spoken.
	Narrating
	// Reconciling means the reply's emotion is being stamped.
	Reconciling
	// Failed is the error edge; it always resolves to Idle.
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dispatching:
		return "dispatching"
	case AwaitingReply:
		return "awaiting_reply"
	case Narrating:
		return "narrating"
	case Reconciling:
		return "reconciling"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrTurnInProgress is returned when a submission arrives while a
	// turn is already active.
	ErrTurnInProgress = errors.New("turn: turn already in progress")

	// ErrEmptyInput is returned for a blank text submission.
	ErrEmptyInput = errors.New("turn: empty input")

	// ErrNoSession is returned when an orchestrator is built without a
	// session manager.
	ErrNoSession = errors.New("turn: session manager required")

	// ErrNoDialogue is returned when an orchestrator is built without
	// a dialogue provider.
	ErrNoDialogue = errors.New("turn: dialogue provider required")

	// ErrNoTranscriber is returned by SubmitVoice when no transcriber
	// was configured.
	ErrNoTranscriber = errors.New("turn: transcriber not configured")
)

// fallbackReply is spoken-side-up when the dialogue service fails: the
// turn still produces a visible assistant message.
const fallbackReply = "عندي مشكلة توا... ممكن تعاود السؤال؟ 😅"

// welcomeReply greets a freshly onboarded user, with %s as the name.
const welcomeReply = "مرحبا %s! 🎮 أنا BMO، صاحبك الجديد! آش نحب نعاونك فيه اليوم؟"

// historyContext is how many stored messages are forwarded to the
// dialogue service as context.
const historyContext = 20
