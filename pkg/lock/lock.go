package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Coordinator acquires and releases short-lived, token-guarded locks.
// Implementations must be safe for concurrent use.
type Coordinator interface {
	// Acquire attempts to take the lock identified by key, storing token as
	// proof of ownership. It returns true only when the caller now holds the
	// lock. The lock self-expires after ttl regardless of whether Release is
	// ever called. If the underlying store cannot be reached, Acquire fails
	// closed: it returns false together with the error.
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// Release frees the lock only when the stored token equals the given
	// token. Releasing with a stale or foreign token is a silent no-op.
	// Release is best effort; the TTL remains the real safety net.
	Release(ctx context.Context, key, token string) error
}

// NewToken returns a random per-acquisition ownership token.
func NewToken() string {
	return uuid.NewString()
}

// Guard acquires the lock with a fresh token and returns a release func
// bound to that token. The second return reports whether the lock was
// acquired; release is non-nil only on success.
func Guard(ctx context.Context, coord Coordinator, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error) {
	token := NewToken()
	ok, err := coord.Acquire(ctx, key, token, ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	return func(ctx context.Context) error {
		return coord.Release(ctx, key, token)
	}, true, nil
}

// releaseScript deletes the key only when its value matches the caller's
// token. Running the comparison inside Redis keeps compare-and-delete atomic;
// a client-side read-then-delete would reintroduce the race the lock exists
// to prevent.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCoordinator implements Coordinator on top of Redis using
// SET NX PX for acquisition and a Lua script for guarded release.
type RedisCoordinator struct {
	client redis.UniversalClient
	prefix string
}

// RedisCoordinatorOption configures a RedisCoordinator.
type RedisCoordinatorOption func(*RedisCoordinator)

// WithKeyPrefix namespaces all lock keys in the shared Redis instance.
func WithKeyPrefix(prefix string) RedisCoordinatorOption {
	return func(c *RedisCoordinator) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// NewRedisCoordinator creates a Redis-backed lock coordinator.
// Panics if client is nil to fail fast during initialization.
func NewRedisCoordinator(client redis.UniversalClient, opts ...RedisCoordinatorOption) *RedisCoordinator {
	if client == nil {
		panic("lock: redis client is required")
	}
	c := &RedisCoordinator{
		client: client,
		prefix: "lock:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCoordinator) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	if token == "" {
		return false, ErrEmptyToken
	}
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}

	ok, err := c.client.SetNX(ctx, c.prefix+key, token, ttl).Result()
	if err != nil {
		// Never grant a lock that cannot be verified.
		return false, err
	}
	return ok, nil
}

func (c *RedisCoordinator) Release(ctx context.Context, key, token string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if token == "" {
		return ErrEmptyToken
	}
	return releaseScript.Run(ctx, c.client, []string{c.prefix + key}, token).Err()
}
