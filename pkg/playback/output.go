package playback

import (
	"context"
	"sync"
	"time"

	"github.com/bmolabs/companion/pkg/tts"
)

// Broadcaster pushes synthesized audio to connected surfaces. The hub
// satisfies this.
type Broadcaster interface {
	BroadcastAudio(audio []byte, contentType string, duration time.Duration)
}

// HubOutput plays by handing audio to every connected surface and
// waiting out the estimated duration. Surfaces decode and sound the
// clip themselves, so actual end of playback is approximated.
type HubOutput struct {
	broadcaster Broadcaster

	mu   sync.Mutex
	stop chan struct{}
}

// NewHubOutput creates an output backed by the given broadcaster.
func NewHubOutput(b Broadcaster) *HubOutput {
	return &HubOutput{broadcaster: b}
}

// Play implements Output.
func (o *HubOutput) Play(ctx context.Context, audio *tts.AudioResult) error {
	o.mu.Lock()
	stop := make(chan struct{})
	o.stop = stop
	o.mu.Unlock()

	o.broadcaster.BroadcastAudio(audio.Audio, audio.ContentType, audio.Duration)

	select {
	case <-time.After(audio.Duration):
		return nil
	case <-stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop implements Stopper; it ends the current wait early.
func (o *HubOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stop != nil {
		select {
		case <-o.stop:
		default:
			close(o.stop)
		}
	}
}

// NullOutput discards audio immediately. Used by surfaces with no
// speaker and by tests.
type NullOutput struct{}

// Play implements Output.
func (NullOutput) Play(ctx context.Context, audio *tts.AudioResult) error {
	return nil
}

var (
	_ Output  = (*HubOutput)(nil)
	_ Stopper = (*HubOutput)(nil)
	_ Output  = NullOutput{}
)
