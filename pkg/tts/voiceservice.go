package tts

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

const providerVoiceService = "voice-service"

// VoiceService implements Provider against the voice-service HTTP
// API, the same endpoint the surface gateways proxy.
type VoiceService struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// NewVoiceService creates a new voice-service synthesis provider.
func NewVoiceService(opts ...Option) (*VoiceService, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &VoiceService{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "tts.voiceservice"),
	}, nil
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Emotion  string `json:"emotion,omitempty"`
}

// Synthesize converts text to audio, returning the complete audio
// buffer. An empty service response is an error: narration must never
// silently produce nothing.
func (v *VoiceService) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	lang := req.Language
	if lang == "" {
		lang = v.config.Language
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:     req.Text,
		Language: lang,
		Emotion:  req.Emotion,
	})
	if err != nil {
		return nil, WrapError(providerVoiceService, fmt.Errorf("marshal payload: %w", err))
	}

	start := time.Now()
	resp, err := v.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, v.parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerVoiceService, fmt.Errorf("read response: %w", err))
	}
	if len(audio) == 0 {
		return nil, WrapError(providerVoiceService, ErrNoAudio)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	v.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"emotion", req.Emotion,
	)

	return &AudioResult{
		Audio:       audio,
		ContentType: contentType,
		CharCount:   len(req.Text),
		LatencyMs:   latency,
		Duration:    EstimateDuration(req.Text),
	}, nil
}

// doWithRetry posts the payload, retrying retryable failures.
func (v *VoiceService) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= v.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(v.config.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST",
			v.config.BaseURL+"/text-to-speech", bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerVoiceService, fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := v.client.Do(req)
		if err != nil {
			lastErr = WrapError(providerVoiceService, err)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = v.parseError(resp)
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError converts an error response into an APIError.
func (v *VoiceService) parseError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(msg),
		Provider:   providerVoiceService,
	}
}

// Health checks service connectivity.
func (v *VoiceService) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", v.config.BaseURL+"/health", nil)
	if err != nil {
		return WrapError(providerVoiceService, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return WrapError(providerVoiceService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return v.parseError(resp)
	}
	return nil
}

// Close releases resources. The shared transport needs no teardown.
func (v *VoiceService) Close() error {
	v.client.CloseIdleConnections()
	return nil
}

// Verify VoiceService implements Provider at compile time.
var _ Provider = (*VoiceService)(nil)
