package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNoURL is returned when a subscriber is built without a feed URL.
var ErrNoURL = errors.New("hub: feed URL required")

// Subscriber is a client of a running server's sync feed. Embedding
// surfaces (the popup, the mobile shell, CLI tools) use it to observe
// events without speaking the wire format themselves.
type Subscriber struct {
	url    string
	logger *slog.Logger
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithSubscriberLogger sets the structured logger.
func WithSubscriberLogger(logger *slog.Logger) SubscriberOption {
	return func(s *Subscriber) { s.logger = logger.With("component", "hub.subscriber") }
}

// NewSubscriber creates a subscriber for the given ws:// feed URL.
func NewSubscriber(url string, opts ...SubscriberOption) (*Subscriber, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	s := &Subscriber{
		url:    url,
		logger: slog.Default().With("component", "hub.subscriber"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Listen dials the feed and invokes handler for every decoded event.
// It blocks until ctx is cancelled or the connection drops; a closed
// connection is returned as an error so callers can decide whether to
// redial.
func (s *Subscriber) Listen(ctx context.Context, handler func(Event)) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("hub: dial %s: %w", s.url, err)
	}
	defer conn.Close()

	s.logger.Info("subscribed", "url", s.url)

	// Unblock the read loop when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("hub: read: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("undecodable event", "error", err)
			continue
		}
		handler(ev)
	}
}
