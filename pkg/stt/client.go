package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bmolabs/companion/internal/httpc"
)

// Client talks to the voice-service speech-to-text endpoint. Audio is
// uploaded as a multipart form, matching the surface gateway contract.
type Client struct {
	baseURL  string
	language string
	client   *http.Client
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLanguage sets the recognition language (default ar-TN).
func WithLanguage(lang string) ClientOption {
	return func(c *Client) { c.language = lang }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.client.Timeout = timeout }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger.With("component", "stt") }
}

// NewClient creates a transcription client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}

	c := &Client{
		baseURL:  baseURL,
		language: "ar-TN",
		client:   httpc.NewClient(60 * time.Second),
		logger:   slog.Default().With("component", "stt"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe uploads the audio payload and returns the recognized
// text. A null or missing transcript means no speech was detected and
// returns "" without error.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("audio", "recording.webm")
	if err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	if err := form.WriteField("language", c.language); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("stt: create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("stt: decode response: %w", err)
	}

	c.logger.Debug("transcribed audio",
		"bytes", len(audio),
		"chars", len(out.Transcript),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return out.Transcript, nil
}

// Verify Client implements Transcriber at compile time.
var _ Transcriber = (*Client)(nil)
