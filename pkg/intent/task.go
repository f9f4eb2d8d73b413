package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bmolabs/companion/internal/httpc"
)

// ErrNoBaseURL is returned when the task service URL is missing.
var ErrNoBaseURL = errors.New("intent: base URL required")

// TaskClient executes intents against the task service REST API.
type TaskClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// TaskOption configures a TaskClient.
type TaskOption func(*TaskClient)

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) TaskOption {
	return func(c *TaskClient) { c.client.Timeout = timeout }
}

// WithTaskLogger sets the structured logger.
func WithTaskLogger(logger *slog.Logger) TaskOption {
	return func(c *TaskClient) { c.logger = logger.With("component", "intent.task") }
}

// NewTaskClient creates a client for the given task service base URL.
func NewTaskClient(baseURL string, opts ...TaskOption) (*TaskClient, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	c := &TaskClient{
		baseURL: baseURL,
		client:  httpc.NewClient(10 * time.Second),
		logger:  slog.Default().With("component", "intent.task"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Execute posts the request to the task service /execute endpoint.
func (c *TaskClient) Execute(ctx context.Context, in Request) (*Result, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("intent: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("intent: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("intent: decode response: %w", err)
	}
	return &out, nil
}

var _ Executor = (*TaskClient)(nil)
