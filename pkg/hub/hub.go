package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Hub tracks connected surfaces and fans encoded events out to them.
type Hub struct {
	// Name for logging
	name string

	logger *slog.Logger

	// Connected surfaces
	clients map[*Client]bool

	// Encoded events waiting to fan out
	broadcast chan []byte

	// Register requests from surfaces
	register chan *Client

	// Unregister requests from surfaces
	unregister chan *Client

	// Guards clients and running
	mu sync.RWMutex

	running bool
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("component", "hub", "hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
// This should be called in a goroutine
func (h *Hub) Run() {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("surface connected", "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("surface disconnected", "remaining", count)

		case frame := <-h.broadcast:
			// Eviction mutates the client set, so the fan-out path
			// needs the write lock too.
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					// Surface buffer is full, it is too slow to keep
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow surface")
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent encodes one sync event and queues it for every
// surface. A full queue drops the event rather than blocking the
// caller. Encoding failures are logged; events are plain structs and
// do not fail in practice.
func (h *Hub) BroadcastEvent(ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "kind", ev.Kind, "error", err)
		return
	}
	select {
	case h.broadcast <- frame:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "kind", ev.Kind)
	}
}

// BroadcastAudio pushes a synthesized clip to every surface as a
// speak event. It satisfies the playback output's broadcaster.
func (h *Hub) BroadcastAudio(audio []byte, contentType string, duration time.Duration) {
	h.BroadcastEvent(SpeakEvent(audio, contentType, duration))
}

// ClientCount returns the number of connected surfaces
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether the broadcast loop has started
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}
