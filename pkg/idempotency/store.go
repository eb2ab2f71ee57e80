package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records processed operation and event identifiers.
// Implementations must be safe for concurrent use.
type Store interface {
	// WasProcessed reports whether key has already been marked as fully
	// applied. A false result may be stale (the entry can have expired);
	// callers relying on exactly-once must back the check with a durable
	// unique constraint.
	WasProcessed(ctx context.Context, key string) (bool, error)

	// MarkProcessed records key as fully applied for the given retention TTL.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) error
}

// RedisStore implements Store on top of Redis. Keys are namespaced with a
// prefix so the store can share a Redis instance with other components.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "idem:" key namespace.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed idempotency store.
// Panics if client is nil to fail fast during initialization.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("idempotency: redis client is required")
	}
	s := &RedisStore{
		client: client,
		prefix: "idem:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) WasProcessed(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return s.client.Set(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Err()
}
