package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// redisOpTimeout bounds individual Redis operations so a dead
	// backend cannot stall a turn.
	redisOpTimeout = 5 * time.Second

	// maxStoredMessages caps the persisted history. Older messages
	// drop off the front on save.
	maxStoredMessages = 200
)

// RedisStore implements Store and Notifier over a shared Redis
// instance. State lives under one JSON value per profile; saves
// publish a change signal so other processes holding the same profile
// can re-read.
type RedisStore struct {
	client  *redis.Client
	key     string
	channel string
}

// NewRedisStore creates a Redis-backed store for the given connection
// URL and device profile.
func NewRedisStore(url, profile string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis url: %w", err)
	}

	return &RedisStore{
		client:  redis.NewClient(opts),
		key:     "companion:session:" + profile,
		channel: "companion:sync:" + profile,
	}, nil
}

// Load retrieves the stored state. A missing key returns (nil, nil).
func (s *RedisStore) Load() (*State, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // No state yet, that's OK
		}
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("session: decode state: %w", err)
	}

	return &state, nil
}

// Save persists the full state, trimming the history to the newest
// maxStoredMessages entries.
func (s *RedisStore) Save(state *State) error {
	trimmed := state
	if len(state.Messages) > maxStoredMessages {
		trimmed = state.Clone()
		trimmed.Messages = trimmed.Messages[len(trimmed.Messages)-maxStoredMessages:]
	}

	data, err := json.Marshal(trimmed)
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}

	return nil
}

// Publish signals other processes sharing this profile that state
// changed.
func (s *RedisStore) Publish(ctx context.Context) error {
	return s.client.Publish(ctx, s.channel, "changed").Err()
}

// Subscribe returns a channel that ticks when another process
// publishes a change. The channel closes when ctx is done.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	sub := s.client.Subscribe(ctx, s.channel)

	// Force the subscription to establish before returning.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("session: redis subscribe: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				// Coalesce bursts: a pending tick is enough.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store and Notifier
var (
	_ Store    = (*RedisStore)(nil)
	_ Notifier = (*RedisStore)(nil)
)
