// Package tts provides the client side of the speech-synthesis
// collaborator.
//
// The default provider talks to the voice-service HTTP API, which
// maps emotion labels onto pitch and speaking-rate adjustments before
// synthesizing. All providers implement the Provider interface, so a
// Chain can fall back between backends without changing caller code.
//
// Example usage:
//
//	provider, _ := tts.NewVoiceService(
//	    tts.WithBaseURL(os.Getenv("VOICE_SERVICE_URL")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, tts.Request{Text: "أهلا!"})
//	// result.Audio contains the synthesized audio bytes
package tts

import (
	"context"
	"time"
	"unicode/utf8"
)

// DefaultLanguage is the synthesis language when none is specified.
// The assistant speaks Tunisian Arabic.
const DefaultLanguage = "ar-TN"

// Request describes one synthesis call.
type Request struct {
	// Text is the text to narrate.
	Text string

	// Language is a BCP-47 language code; empty means DefaultLanguage.
	Language string

	// Emotion is an optional emotion label the service maps to voice
	// pitch and speaking rate. Empty means a neutral delivery.
	Emotion string
}

// Provider defines the synthesis provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete
	// audio buffer.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data.
	Audio []byte

	// ContentType is the audio MIME type (e.g. audio/mpeg).
	ContentType string

	// Duration is the estimated playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to the full response in milliseconds.
	LatencyMs int64
}

// EstimateDuration approximates playback time for a text of the given
// rune count. Surfaces report no playback-finished signal, so callers
// that need a completion point wait this long.
func EstimateDuration(text string) time.Duration {
	// Roughly 80ms per character of natural speech.
	return time.Duration(utf8.RuneCountInString(text)) * 80 * time.Millisecond
}
