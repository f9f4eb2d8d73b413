package dialogue

import (
	"context"
	"sync"
	"time"
)

// Mock is a mock implementation of Provider for testing.
type Mock struct {
	mu    sync.Mutex
	calls []MockCall

	// ConverseFunc allows customizing Converse behavior.
	ConverseFunc func(ctx context.Context, q Query) (*Reply, error)
}

// MockCall records a single call to the mock.
type MockCall struct {
	Utterance string
	History   int
	Time      time.Time
}

// NewMock creates a mock that echoes a canned reply.
func NewMock(text string) *Mock {
	return &Mock{
		ConverseFunc: func(ctx context.Context, q Query) (*Reply, error) {
			return &Reply{Text: text}, nil
		},
	}
}

// Converse implements Provider.
func (m *Mock) Converse(ctx context.Context, q Query) (*Reply, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Utterance: q.Utterance, History: len(q.History), Time: time.Now()})
	m.mu.Unlock()

	if m.ConverseFunc != nil {
		return m.ConverseFunc(ctx, q)
	}
	return &Reply{Text: "ok"}, nil
}

// WithError configures the mock to always fail with err.
func (m *Mock) WithError(err error) *Mock {
	m.ConverseFunc = func(ctx context.Context, q Query) (*Reply, error) {
		return nil, err
	}
	return m
}

// CallCount returns how many times Converse was called.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent call, or nil.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	c := m.calls[len(m.calls)-1]
	return &c
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

var _ Provider = (*Mock)(nil)
