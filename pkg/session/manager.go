package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bmolabs/companion/pkg/mood"
	"github.com/google/uuid"
)

// ChangeKind describes what a change notification refers to.
type ChangeKind string

const (
	// ChangeSession covers identity changes: name set, clear, reset.
	ChangeSession ChangeKind = "session"

	// ChangeMessage covers a single appended or stamped message.
	ChangeMessage ChangeKind = "message"
)

// Manager mediates all reads and writes of session state. Every
// mutating call writes through to the Store before returning, so
// callers may assume durability on success. Persistence failures are
// logged and do not fail the caller: the in-memory state remains the
// source of truth for this process.
type Manager struct {
	mu    sync.RWMutex
	state *State
	store Store

	logger    *slog.Logger
	onChange  []func(kind ChangeKind)
	changedMu sync.RWMutex
}

// NewManager creates a manager over the given store and restores any
// persisted state. When no state exists, a fresh session identity is
// fabricated immediately; Load never blocks on anything but the store
// read and never fails the caller.
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		store:  store,
		logger: logger.With("component", "session"),
	}
	m.load()
	return m
}

func (m *Manager) load() {
	var state *State
	if m.store != nil {
		loaded, err := m.store.Load()
		if err != nil {
			m.logger.Warn("restore failed, starting fresh", "error", err)
		} else {
			state = loaded
		}
	}

	if state == nil || state.Session.ID == "" {
		state = &State{Session: newSession()}
		m.logger.Info("created session", "session_id", state.Session.ID)
	}

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

func newSession() Session {
	return Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Reload re-reads state from the store, replacing the in-memory copy.
// Used when another process signals a change. Stale reads are
// tolerated: on error the current state is kept.
func (m *Manager) Reload() {
	if m.store == nil {
		return
	}

	loaded, err := m.store.Load()
	if err != nil || loaded == nil || loaded.Session.ID == "" {
		if err != nil {
			m.logger.Warn("reload failed, keeping current state", "error", err)
		}
		return
	}

	m.mu.Lock()
	m.state = loaded
	m.mu.Unlock()
	m.notify(ChangeSession)
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() *State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Session returns a copy of the current session identity.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Session
}

// Messages returns a copy of the conversation log.
func (m *Manager) Messages() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Message, len(m.state.Messages))
	copy(out, m.state.Messages)
	return out
}

// MessageCount returns the current message count.
func (m *Manager) MessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state.Messages)
}

// SetUserName validates and persists the user name, returning the
// updated session. Names that trim to empty are rejected with
// ErrEmptyName. A session that already carries a name is rejected with
// ErrNameAlreadySet; callers Reset before onboarding someone new.
func (m *Manager) SetUserName(name string) (Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		m.mu.RLock()
		current := m.state.Session
		m.mu.RUnlock()
		return current, ErrEmptyName
	}

	m.mu.Lock()
	if m.state.Session.UserName != "" {
		current := m.state.Session
		m.mu.Unlock()
		return current, ErrNameAlreadySet
	}
	m.state.Session.UserName = name
	session := m.state.Session
	m.persistLocked()
	m.mu.Unlock()

	m.notify(ChangeSession)
	return session, nil
}

// AppendMessage appends a message to the log, persists, and returns
// the new message count. Messages are never removed or reordered.
func (m *Manager) AppendMessage(msg Message) int {
	m.mu.Lock()
	m.state.Messages = append(m.state.Messages, msg)
	count := len(m.state.Messages)
	m.persistLocked()
	m.mu.Unlock()

	m.notify(ChangeMessage)
	return count
}

// StampEmotion sets the emotion on the most recent assistant message
// of the given turn. It is the one sanctioned post-append mutation:
// reconciliation runs after narration, once the reply's mood is known.
func (m *Manager) StampEmotion(turnID int, label mood.Label) bool {
	m.mu.Lock()
	stamped := false
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		msg := &m.state.Messages[i]
		if msg.TurnID == turnID && msg.Role == RoleAssistant {
			msg.Emotion = label
			stamped = true
			break
		}
	}
	if stamped {
		m.persistLocked()
	}
	m.mu.Unlock()

	if stamped {
		m.notify(ChangeMessage)
	}
	return stamped
}

// Clear wipes the message history. Session identity survives.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.state.Messages = nil
	m.persistLocked()
	m.mu.Unlock()

	m.notify(ChangeSession)
}

// Reset is a full logout: history is wiped, the user name cleared and
// a fresh session identity generated.
func (m *Manager) Reset() Session {
	m.mu.Lock()
	m.state = &State{Session: newSession()}
	session := m.state.Session
	m.persistLocked()
	m.mu.Unlock()

	m.logger.Info("session reset", "session_id", session.ID)
	m.notify(ChangeSession)
	return session
}

// OnChange registers a callback invoked after every successful
// mutation. Callbacks run synchronously on the mutating goroutine and
// must not call back into the manager's mutating methods.
func (m *Manager) OnChange(fn func(kind ChangeKind)) {
	m.changedMu.Lock()
	m.onChange = append(m.onChange, fn)
	m.changedMu.Unlock()
}

func (m *Manager) notify(kind ChangeKind) {
	m.changedMu.RLock()
	callbacks := m.onChange
	m.changedMu.RUnlock()

	for _, fn := range callbacks {
		fn(kind)
	}
}

// persistLocked writes the current state through to the store.
// Callers must hold mu.
func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	if err := m.store.Save(m.state); err != nil {
		m.logger.Error("persist failed", "error", err)
		return
	}

	// Shared backends announce the write so sibling processes re-read.
	if n, ok := m.store.(Notifier); ok {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := n.Publish(ctx); err != nil {
			m.logger.Warn("change publish failed", "error", err)
		}
	}
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
