// Package capture manages the microphone recording lifecycle.
//
// The Controller is a small state machine (Idle → Capturing →
// Finalizing → Idle) over a Device boundary. It buffers audio chunks
// in arrival order while capturing and seals them into one payload on
// stop. Transcription of the payload is the caller's concern.
package capture

import (
	"context"
	"log/slog"
	"sync"
)

// State is the controller's lifecycle state.
type State int

const (
	// Idle means no capture is in progress.
	Idle State = iota
	// Capturing means audio chunks are being buffered.
	Capturing
	// Finalizing means a stop is sealing the buffered chunks.
	Finalizing
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Finalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Device is the boundary to platform audio input. Implementations
// wrap the surface's microphone API; permission prompts are theirs.
type Device interface {
	// Open acquires exclusive device access and starts recording.
	// It fails with ErrPermissionDenied or ErrDeviceUnavailable
	// (possibly wrapped) when access cannot be obtained.
	Open(ctx context.Context) (DeviceSession, error)
}

// DeviceSession is one live recording.
type DeviceSession interface {
	// Read returns the next audio chunk, blocking until one is
	// available. It returns io.EOF-like closure via a nil chunk and
	// error once the session is closed.
	Read() ([]byte, error)

	// Close releases the device.
	Close() error
}

// Controller serializes capture: exactly one session may be active
// per client instance.
type Controller struct {
	device Device
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	opening bool
	session DeviceSession
	chunks  [][]byte
	done    chan struct{}
}

// New creates a capture controller over the given device.
func New(device Device, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		device: device,
		logger: logger.With("component", "capture"),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start acquires the device and begins buffering chunks. Calling
// Start while already capturing is an idempotent no-op, guarding
// against duplicate press-and-hold triggers. Device failures are
// returned to the caller and leave the controller Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Capturing || c.opening {
		c.mu.Unlock()
		c.logger.Debug("start ignored, already capturing")
		return nil
	}
	if c.state == Finalizing {
		c.mu.Unlock()
		return ErrFinalizing
	}
	// Hold the claim across Open so a racing Start cannot acquire a
	// second session that would be leaked.
	c.opening = true
	c.mu.Unlock()

	session, err := c.device.Open(ctx)

	c.mu.Lock()
	c.opening = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("device open failed", "error", err)
		return err
	}
	c.state = Capturing
	c.session = session
	c.chunks = nil
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.pump(session, done)
	c.logger.Debug("capture started")
	return nil
}

// pump buffers chunks in arrival order until the session closes.
func (c *Controller) pump(session DeviceSession, done chan struct{}) {
	defer close(done)
	for {
		chunk, err := session.Read()
		if err != nil {
			return
		}
		if len(chunk) == 0 {
			continue
		}
		c.mu.Lock()
		// Chunks read while finalizing still belong to the payload.
		if c.session == session && c.state != Idle {
			c.chunks = append(c.chunks, chunk)
		}
		c.mu.Unlock()
	}
}

// Stop seals the buffered chunks into one payload, releases the
// device and returns to Idle. The boolean reports whether a capture
// was actually in progress; calling Stop from Idle is a safe no-op
// returning (nil, false).
func (c *Controller) Stop() ([]byte, bool) {
	c.mu.Lock()
	if c.state != Capturing {
		c.mu.Unlock()
		return nil, false
	}
	c.state = Finalizing
	session := c.session
	done := c.done
	c.mu.Unlock()

	session.Close()
	if done != nil {
		<-done // Wait for the pump to drain
	}

	c.mu.Lock()
	payload := seal(c.chunks)
	c.chunks = nil
	c.session = nil
	c.done = nil
	c.state = Idle
	c.mu.Unlock()

	c.logger.Debug("capture sealed", "bytes", len(payload))
	return payload, true
}

// seal concatenates buffered chunks into one payload.
func seal(chunks [][]byte) []byte {
	total := 0
	for _, ch := range chunks {
		total += len(ch)
	}
	payload := make([]byte, 0, total)
	for _, ch := range chunks {
		payload = append(payload, ch...)
	}
	return payload
}
