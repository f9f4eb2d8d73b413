package session

import (
	"context"
	"errors"
)

// Sentinel errors for the session package.
var (
	// ErrEmptyName is returned when a user name trims to empty.
	ErrEmptyName = errors.New("session: user name must not be empty")

	// ErrNameAlreadySet is returned when onboarding a session that
	// already has a user name. Reset starts a fresh session first.
	ErrNameAlreadySet = errors.New("session: user name already set")

	// ErrStoreClosed is returned when using a closed store.
	ErrStoreClosed = errors.New("session: store closed")
)

// Store defines the durable persistence backend for session state.
// Implementations can store to JSON files, Redis, SQLite, etc.
type Store interface {
	// Load retrieves the stored state. A missing record is not an
	// error: implementations return (nil, nil).
	Load() (*State, error)

	// Save persists the full state. Save is write-through: callers
	// may assume durability once it returns nil.
	Save(state *State) error

	// Close releases any resources held by the store.
	Close() error
}

// Notifier is implemented by stores that can signal cross-process
// change. Writers publish after a successful save; other processes
// re-read on receive. Delivery is best-effort and eventually
// consistent; readers must tolerate stale data.
type Notifier interface {
	// Subscribe returns a channel that receives a tick whenever
	// another process saves. The channel closes when ctx is done.
	Subscribe(ctx context.Context) (<-chan struct{}, error)

	// Publish signals other subscribers that state changed.
	Publish(ctx context.Context) error
}
