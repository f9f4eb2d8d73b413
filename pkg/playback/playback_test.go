package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bmolabs/companion/pkg/tts"
)

// blockingOutput holds Play open until released, recording each clip.
type blockingOutput struct {
	mu      sync.Mutex
	clips   [][]byte
	release chan struct{}
	started chan struct{}
}

func newBlockingOutput() *blockingOutput {
	return &blockingOutput{
		release: make(chan struct{}),
		started: make(chan struct{}, 4),
	}
}

func (o *blockingOutput) Play(ctx context.Context, audio *tts.AudioResult) error {
	o.mu.Lock()
	o.clips = append(o.clips, audio.Audio)
	o.mu.Unlock()
	o.started <- struct{}{}
	select {
	case <-o.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *blockingOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.clips)
}

// stoppableOutput holds each Play open until Stop cuts it, tracking how
// many times the controller asked for a stop.
type stoppableOutput struct {
	mu      sync.Mutex
	stops   int
	active  chan struct{}
	started chan struct{}
}

func newStoppableOutput() *stoppableOutput {
	return &stoppableOutput{started: make(chan struct{}, 4)}
}

func (o *stoppableOutput) Play(ctx context.Context, audio *tts.AudioResult) error {
	o.mu.Lock()
	stop := make(chan struct{})
	o.active = stop
	o.mu.Unlock()
	o.started <- struct{}{}
	select {
	case <-stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *stoppableOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops++
	if o.active != nil {
		select {
		case <-o.active:
		default:
			close(o.active)
		}
	}
}

func (o *stoppableOutput) stopCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stops
}

func TestControllerPlay(t *testing.T) {
	t.Run("full cycle returns to idle", func(t *testing.T) {
		provider := tts.NewMock()
		c, err := NewController(provider, NullOutput{})
		if err != nil {
			t.Fatalf("NewController: %v", err)
		}

		if err := c.Play(context.Background(), "مرحبا", "happy"); err != nil {
			t.Fatalf("Play: %v", err)
		}
		if c.State() != Idle {
			t.Errorf("state = %v, want idle", c.State())
		}
		if provider.CallCount("Synthesize") != 1 {
			t.Errorf("synthesize calls = %d, want 1", provider.CallCount("Synthesize"))
		}
	})

	t.Run("empty text rejected", func(t *testing.T) {
		c, _ := NewController(tts.NewMock(), NullOutput{})
		if err := c.Play(context.Background(), "", "happy"); !errors.Is(err, ErrEmptyText) {
			t.Errorf("err = %v, want ErrEmptyText", err)
		}
	})

	t.Run("synthesis failure surfaces and resets state", func(t *testing.T) {
		provider := tts.WithError(errors.New("service down"))
		c, _ := NewController(provider, NullOutput{})

		if err := c.Play(context.Background(), "مرحبا", "happy"); err == nil {
			t.Fatal("expected error")
		}
		if c.State() != Idle {
			t.Errorf("state = %v, want idle", c.State())
		}
	})

	t.Run("later play supersedes earlier one", func(t *testing.T) {
		output := newBlockingOutput()
		c, _ := NewController(tts.NewMock(), output)

		done := make(chan error, 1)
		go func() {
			done <- c.Play(context.Background(), "first", "happy")
		}()
		<-output.started

		// Second utterance bumps the generation while the first is
		// still sounding.
		go func() {
			c.Play(context.Background(), "second", "happy")
		}()
		<-output.started

		close(output.release)
		if err := <-done; err != nil {
			t.Fatalf("superseded Play returned %v, want nil", err)
		}
		if output.count() != 2 {
			t.Errorf("clips = %d, want 2", output.count())
		}
	})

	t.Run("superseding play silences the earlier clip", func(t *testing.T) {
		output := newStoppableOutput()
		c, _ := NewController(tts.NewMock(), output)

		first := make(chan error, 1)
		go func() {
			first <- c.Play(context.Background(), "first", "happy")
		}()
		<-output.started

		second := make(chan error, 1)
		go func() {
			second <- c.Play(context.Background(), "second", "happy")
		}()
		<-output.started

		// The first clip must have been cut, not left sounding under
		// the second one.
		select {
		case err := <-first:
			if err != nil {
				t.Fatalf("superseded Play returned %v, want nil", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("earlier clip kept sounding after a newer play started")
		}
		if output.stopCount() == 0 {
			t.Error("output was never told to stop")
		}

		c.Cancel()
		if err := <-second; err != nil {
			t.Fatalf("second Play returned %v, want nil", err)
		}
	})

	t.Run("cancel stops playback and idles", func(t *testing.T) {
		provider := tts.NewMock()
		output := NewHubOutput(stubBroadcaster{})
		c, _ := NewController(provider, output)

		done := make(chan error, 1)
		go func() {
			done <- c.Play(context.Background(), "long utterance that would sound for a while", "happy")
		}()

		// Wait for playback to begin, then cut it.
		deadline := time.After(2 * time.Second)
		for c.State() != Playing {
			select {
			case <-deadline:
				t.Fatal("never reached playing")
			case <-time.After(time.Millisecond):
			}
		}
		c.Cancel()

		if err := <-done; err != nil {
			t.Fatalf("cancelled Play returned %v, want nil", err)
		}
		if c.State() != Idle {
			t.Errorf("state = %v, want idle", c.State())
		}
	})

	t.Run("muted controller skips synthesis", func(t *testing.T) {
		provider := tts.NewMock()
		c, _ := NewController(provider, NullOutput{}, WithMuted(true))

		if err := c.Play(context.Background(), "مرحبا", "happy"); err != nil {
			t.Fatalf("Play: %v", err)
		}
		if provider.CallCount("Synthesize") != 0 {
			t.Errorf("synthesize calls = %d, want 0", provider.CallCount("Synthesize"))
		}
	})

	t.Run("missing collaborators rejected", func(t *testing.T) {
		if _, err := NewController(nil, NullOutput{}); !errors.Is(err, ErrNoProvider) {
			t.Errorf("err = %v, want ErrNoProvider", err)
		}
		if _, err := NewController(tts.NewMock(), nil); !errors.Is(err, ErrNoOutput) {
			t.Errorf("err = %v, want ErrNoOutput", err)
		}
	})
}

type stubBroadcaster struct{}

func (stubBroadcaster) BroadcastAudio(audio []byte, contentType string, duration time.Duration) {}

func TestHubOutput(t *testing.T) {
	t.Run("waits out estimated duration", func(t *testing.T) {
		o := NewHubOutput(stubBroadcaster{})
		start := time.Now()
		err := o.Play(context.Background(), &tts.AudioResult{Audio: []byte{1}, Duration: 20 * time.Millisecond})
		if err != nil {
			t.Fatalf("Play: %v", err)
		}
		if time.Since(start) < 20*time.Millisecond {
			t.Error("returned before the clip could finish")
		}
	})

	t.Run("stop ends the wait early", func(t *testing.T) {
		o := NewHubOutput(stubBroadcaster{})
		done := make(chan error, 1)
		go func() {
			done <- o.Play(context.Background(), &tts.AudioResult{Audio: []byte{1}, Duration: time.Minute})
		}()
		time.Sleep(10 * time.Millisecond)
		o.Stop()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Play: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("stop did not end playback")
		}
	})
}
