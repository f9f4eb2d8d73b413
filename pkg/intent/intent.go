// Package intent detects app-launch requests in user utterances and
// forwards them to an action executor. Detection is deliberately dumb:
// a trigger word plus a catalog keyword, first match wins. The model
// reply is never consulted, only what the user actually said.
package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Action values understood by the executor.
const (
	ActionOpenApp = "open_app"
)

// Request is a single action to carry out on the user's device.
type Request struct {
	Action string `json:"action"`
	Target string `json:"target"`
}

// Result reports what the executor did.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Executor carries out a detected intent.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// ErrNoExecutor is returned when a dispatcher is built without one.
var ErrNoExecutor = errors.New("intent: executor required")

// App is one catalog entry. Keywords include the canonical name and
// localized synonyms.
type App struct {
	Target   string
	Keywords []string
}

// triggers gate the scan: without one of these in the utterance no
// catalog lookup happens.
var triggers = []string{"افتح", "حل", "open"}

// catalog order decides ties when an utterance names several apps.
var catalog = []App{
	{Target: "youtube", Keywords: []string{"youtube", "يوتيوب"}},
	{Target: "facebook", Keywords: []string{"facebook", "فيسبوك"}},
	{Target: "whatsapp", Keywords: []string{"whatsapp", "واتساب"}},
	{Target: "gmail", Keywords: []string{"gmail", "بريد"}},
	{Target: "maps", Keywords: []string{"maps", "خرائط"}},
	{Target: "chrome", Keywords: []string{"chrome", "متصفح"}},
	{Target: "calculator", Keywords: []string{"calculator", "حاسبة"}},
}

// Dispatcher scans utterances against the catalog and fires matching
// actions in the background.
type Dispatcher struct {
	executor Executor
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger.With("component", "intent") }
}

// NewDispatcher creates a dispatcher backed by the given executor.
func NewDispatcher(executor Executor, opts ...Option) (*Dispatcher, error) {
	if executor == nil {
		return nil, ErrNoExecutor
	}
	d := &Dispatcher{
		executor: executor,
		logger:   slog.Default().With("component", "intent"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Scan returns the catalog target named by text, or "" when text
// carries no trigger word or no known app.
func (d *Dispatcher) Scan(text string) string {
	if !hasTrigger(text) {
		return ""
	}
	lower := strings.ToLower(text)
	for _, app := range catalog {
		for _, kw := range app.Keywords {
			if strings.Contains(lower, kw) {
				return app.Target
			}
		}
	}
	return ""
}

// Dispatch scans text and, on a match, fires the action in a
// goroutine. The turn never waits on the device and never fails
// because an app would not open; failures are only logged.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (target string) {
	target = d.Scan(text)
	if target == "" {
		return ""
	}

	go func() {
		res, err := d.executor.Execute(ctx, Request{Action: ActionOpenApp, Target: target})
		if err != nil {
			d.logger.Warn("app intent failed", "target", target, "error", err)
			return
		}
		d.logger.Info("app intent executed", "target", target, "success", res.Success)
	}()

	d.logger.Debug("app intent detected", "target", target)
	return target
}

func hasTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, t := range triggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// APIError represents an error response from the task API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("intent: API error (status %d): %s", e.StatusCode, e.Message)
}
