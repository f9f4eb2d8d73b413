// Package playback turns assistant replies into speech and plays them
// through an output. At most one utterance is audible at a time: a new
// Play supersedes whatever is still sounding, and a superseded
// completion never touches controller state.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bmolabs/companion/pkg/tts"
)

// State is the controller's playback state.
type State int

const (
	// Idle means nothing is being synthesized or played.
	Idle State = iota
	// Loading means synthesis is in flight.
	Loading
	// Playing means audio is sounding on the output.
	Playing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Output receives synthesized audio. Play blocks until the audio has
// finished sounding or ctx is cancelled.
type Output interface {
	Play(ctx context.Context, audio *tts.AudioResult) error
}

// Stopper is implemented by outputs that can cut audio mid-utterance.
type Stopper interface {
	Stop()
}

var (
	// ErrNoProvider is returned when a controller is built without a
	// synthesis provider.
	ErrNoProvider = errors.New("playback: provider required")

	// ErrNoOutput is returned when a controller is built without an
	// output.
	ErrNoOutput = errors.New("playback: output required")

	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("playback: empty text")
)

// Controller serializes speech through a synthesis provider and an
// output.
type Controller struct {
	provider tts.Provider
	output   Output
	logger   *slog.Logger
	muted    bool

	mu         sync.Mutex
	state      State
	generation uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger.With("component", "playback") }
}

// WithMuted creates the controller muted; Play synthesizes nothing and
// returns immediately.
func WithMuted(muted bool) Option {
	return func(c *Controller) { c.muted = muted }
}

// NewController creates a playback controller.
func NewController(provider tts.Provider, output Output, opts ...Option) (*Controller, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if output == nil {
		return nil, ErrNoOutput
	}
	c := &Controller{
		provider: provider,
		output:   output,
		logger:   slog.Default().With("component", "playback"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Play synthesizes text and plays it, blocking until the audio is done
// or a later Play or Cancel supersedes this one. A superseded call
// returns nil without altering state. Synthesis failure is returned to
// the caller with the controller back at Idle.
func (c *Controller) Play(ctx context.Context, text, emotion string) error {
	if text == "" {
		return ErrEmptyText
	}
	if c.muted {
		return nil
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	wasActive := c.state != Idle
	c.state = Loading
	c.mu.Unlock()

	// A newer narration must silence whatever is still sounding, not
	// just orphan its completion.
	if wasActive {
		c.stopOutput()
	}

	audio, err := c.provider.Synthesize(ctx, tts.Request{Text: text, Emotion: emotion})
	if err != nil {
		c.settle(gen, Idle)
		return fmt.Errorf("playback: synthesize: %w", err)
	}

	if !c.settle(gen, Playing) {
		// Superseded while synthesizing. Audio is discarded.
		return nil
	}

	c.logger.Debug("playing utterance",
		"chars", audio.CharCount,
		"duration", audio.Duration,
		"emotion", emotion,
	)

	playErr := c.output.Play(ctx, audio)
	if !c.settle(gen, Idle) {
		return nil
	}
	if playErr != nil {
		return fmt.Errorf("playback: output: %w", playErr)
	}
	return nil
}

// Cancel supersedes any in-flight playback and silences the output if
// it supports stopping.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.generation++
	c.state = Idle
	c.mu.Unlock()

	c.stopOutput()
}

func (c *Controller) stopOutput() {
	if s, ok := c.output.(Stopper); ok {
		s.Stop()
	}
}

// settle moves to next only if gen is still current. Returns false for
// stale completions.
func (c *Controller) settle(gen uint64, next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.state = next
	return true
}
