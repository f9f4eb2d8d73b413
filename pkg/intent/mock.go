package intent

import (
	"context"
	"sync"
)

// Mock is a mock implementation of Executor for testing.
type Mock struct {
	mu       sync.Mutex
	requests []Request
	done     chan struct{}

	// ExecuteFunc allows customizing Execute behavior.
	ExecuteFunc func(ctx context.Context, req Request) (*Result, error)
}

// NewMock creates a mock executor that succeeds.
func NewMock() *Mock {
	return &Mock{done: make(chan struct{}, 16)}
}

// Execute implements Executor.
func (m *Mock) Execute(ctx context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	defer func() {
		select {
		case m.done <- struct{}{}:
		default:
		}
	}()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, req)
	}
	return &Result{Success: true, Message: "ok"}, nil
}

// WithError configures the mock to always fail with err.
func (m *Mock) WithError(err error) *Mock {
	m.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		return nil, err
	}
	return m
}

// Wait blocks until the next Execute call completes. Dispatch runs
// the executor on a goroutine, so tests need this to observe it.
func (m *Mock) Wait() {
	<-m.done
}

// Requests returns a copy of recorded requests.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many times Execute was called.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears recorded requests.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

var _ Executor = (*Mock)(nil)
