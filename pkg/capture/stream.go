package capture

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrNoActiveSession is returned when a chunk arrives with no capture
// in progress.
var ErrNoActiveSession = errors.New("capture: no active session")

// StreamDevice is a Device fed by the surface itself: browser and
// mobile recorders upload their chunks over the API instead of the
// process owning a microphone. One session may be open at a time.
type StreamDevice struct {
	mu     sync.Mutex
	active *streamSession
}

// NewStreamDevice creates an empty stream device.
func NewStreamDevice() *StreamDevice {
	return &StreamDevice{}
}

// Open implements Device.
func (d *StreamDevice) Open(ctx context.Context) (DeviceSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		return nil, ErrDeviceUnavailable
	}
	s := &streamSession{
		device: d,
		ch:     make(chan []byte, 64),
	}
	d.active = s
	return s, nil
}

// Push forwards an uploaded chunk to the open session.
func (d *StreamDevice) Push(chunk []byte) error {
	d.mu.Lock()
	s := d.active
	d.mu.Unlock()
	if s == nil {
		return ErrNoActiveSession
	}
	return s.push(chunk)
}

// release detaches a closed session.
func (d *StreamDevice) release(s *streamSession) {
	d.mu.Lock()
	if d.active == s {
		d.active = nil
	}
	d.mu.Unlock()
}

type streamSession struct {
	device *StreamDevice

	mu     sync.Mutex
	closed bool
	ch     chan []byte
}

func (s *streamSession) push(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNoActiveSession
	}
	select {
	case s.ch <- chunk:
		return nil
	default:
		// The pump has fallen behind; dropping is better than
		// stalling the upload handler.
		return nil
	}
}

// Read implements DeviceSession.
func (s *streamSession) Read() ([]byte, error) {
	chunk, ok := <-s.ch
	if !ok {
		return nil, io.EOF
	}
	return chunk, nil
}

// Close implements DeviceSession.
func (s *streamSession) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()

	s.device.release(s)
	return nil
}

var _ Device = (*StreamDevice)(nil)
