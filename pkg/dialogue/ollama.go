package dialogue

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

// personaPrompt is the assistant's fixed persona: a playful companion
// that answers in Tunisian Arabic. The %s slot carries user context.
const personaPrompt = `You are BMO, a living video game console from Adventure Time, but you speak Tunisian Arabic (دارجة تونسية).

PERSONALITY:
- You are childlike, sweet, and enthusiastic
- You love to help and make people happy
- You treat the users like they're your friends or family

LANGUAGE:
- ALWAYS respond primarily in Tunisian Arabic (Arabic script mixed with French words as naturally used in Tunisia)
- Use friendly, informal Tunisian expressions like: "برشا", "ياسر", "توا"

USER:
%s

BEHAVIOR:
- Be FAST in your responses - it's okay to be brief
- Be encouraging and positive`

// historyWindow is how many recent exchanges are forwarded as model
// context. Small models slow down fast with long prompts.
const historyWindow = 6

// Ollama implements Provider against an Ollama-compatible chat API.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// OllamaOption configures an Ollama provider.
type OllamaOption func(*Ollama)

// WithModel sets the model name.
func WithModel(model string) OllamaOption {
	return func(o *Ollama) { o.model = model }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) OllamaOption {
	return func(o *Ollama) { o.client.Timeout = timeout }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) OllamaOption {
	return func(o *Ollama) { o.logger = logger.With("component", "dialogue.ollama") }
}

// NewOllama creates a dialogue provider for the given base URL.
func NewOllama(baseURL string, opts ...OllamaOption) (*Ollama, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}

	o := &Ollama{
		baseURL: baseURL,
		model:   "llama3.2:1b",
		client:  httpc.NewClient(30 * time.Second),
		logger:  slog.Default().With("component", "dialogue.ollama"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	System   string         `json:"system"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Converse sends the utterance with recent history and returns the
// model's reply.
func (o *Ollama) Converse(ctx context.Context, q Query) (*Reply, error) {
	if q.Utterance == "" {
		return nil, ErrEmptyUtterance
	}

	messages := make([]chatMessage, 0, historyWindow+1)
	history := q.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, ex := range history {
		messages = append(messages, chatMessage{Role: ex.Role, Content: ex.Content})
	}
	messages = append(messages, chatMessage{Role: RoleUser, Content: q.Utterance})

	payload := chatRequest{
		Model:    o.model,
		Messages: messages,
		System:   fmt.Sprintf(personaPrompt, userContext(q)),
		Stream:   false,
		Options: map[string]any{
			"temperature": 0.8,
			"top_p":       0.9,
			"num_predict": 300, // Keep replies short for speed
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dialogue: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dialogue: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dialogue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("dialogue: decode response: %w", err)
	}
	if out.Message.Content == "" {
		return nil, ErrEmptyReply
	}

	o.logger.Debug("dialogue reply",
		"chars", len(out.Message.Content),
		"history", len(history),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &Reply{Text: out.Message.Content}, nil
}

func userContext(q Query) string {
	name := q.UserName
	if name == "" {
		name = "Friend"
	}
	return fmt.Sprintf("Name: %s\nSession: %s", name, q.SessionID)
}

// Verify Ollama implements Provider at compile time.
var _ Provider = (*Ollama)(nil)
