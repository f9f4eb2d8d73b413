package capture

import (
	"context"
	"sync"
)

// MockDevice implements Device for testing. Chunks queued with Feed
// are delivered to the next open session in order.
type MockDevice struct {
	// OpenErr, when set, is returned by Open.
	OpenErr error

	mu      sync.Mutex
	pending [][]byte
	opens   int
}

// NewMockDevice creates a mock device.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// Feed queues a chunk for the next session.
func (d *MockDevice) Feed(chunk []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, chunk)
}

// Opens returns how many sessions were opened.
func (d *MockDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Open starts a mock recording session.
func (d *MockDevice) Open(_ context.Context) (DeviceSession, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}

	d.mu.Lock()
	d.opens++
	chunks := d.pending
	d.pending = nil
	d.mu.Unlock()

	s := &mockSession{closed: make(chan struct{})}
	s.chunks = chunks
	return s, nil
}

type mockSession struct {
	mu     sync.Mutex
	chunks [][]byte
	closed chan struct{}
	once   sync.Once
}

// Read delivers queued chunks, then blocks until Close.
func (s *mockSession) Read() ([]byte, error) {
	s.mu.Lock()
	if len(s.chunks) > 0 {
		chunk := s.chunks[0]
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return chunk, nil
	}
	s.mu.Unlock()

	<-s.closed
	return nil, ErrDeviceUnavailable
}

// Close ends the session.
func (s *mockSession) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// Verify mock types implement the boundaries at compile time.
var (
	_ Device        = (*MockDevice)(nil)
	_ DeviceSession = (*mockSession)(nil)
)
