package mood

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bmolabs/companion/internal/httpc"
)

const providerRemote = "remote"

// Remote is a client for an emotion-classification backend. Its result
// takes precedence over the local keyword rules when both are wired
// into a Chain.
type Remote struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// RemoteOption configures a Remote analyzer.
type RemoteOption func(*Remote)

// WithHTTPClient overrides the HTTP client used for analysis calls.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RemoteOption {
	return func(r *Remote) { r.logger = logger.With("component", "mood.remote") }
}

// NewRemote creates a remote analyzer for the given base URL.
func NewRemote(baseURL string, opts ...RemoteOption) (*Remote, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}

	r := &Remote{
		baseURL: baseURL,
		client:  httpc.NewClient(10 * time.Second),
		logger:  slog.Default().With("component", "mood.remote"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Emotion string `json:"emotion"`
}

// Analyze classifies text via the remote backend. The returned label
// is normalized onto the closed set.
func (r *Remote) Analyze(ctx context.Context, text string) (Label, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return Default, WrapError(providerRemote, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return Default, WrapError(providerRemote, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Default, WrapError(providerRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Default, &APIError{StatusCode: resp.StatusCode, Message: string(msg), Provider: providerRemote}
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Default, WrapError(providerRemote, fmt.Errorf("decode response: %w", err))
	}

	label := Normalize(out.Emotion)
	r.logger.Debug("analyzed emotion", "label", label, "chars", len(text))
	return label, nil
}

// Verify Remote implements Analyzer at compile time.
var _ Analyzer = (*Remote)(nil)
