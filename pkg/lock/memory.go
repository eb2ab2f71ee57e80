package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryCoordinator is an in-process Coordinator with the same semantics as
// the Redis implementation. Suitable for tests and single-process setups;
// it provides no cross-process exclusion.
type MemoryCoordinator struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCoordinator creates an in-memory lock coordinator.
func NewMemoryCoordinator() *MemoryCoordinator {
	return &MemoryCoordinator{
		locks: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (c *MemoryCoordinator) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	if token == "" {
		return false, ErrEmptyToken
	}
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, held := c.locks[key]; held && entry.expiresAt.After(now) {
		return false, nil
	}

	c.locks[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return true, nil
}

func (c *MemoryCoordinator) Release(ctx context.Context, key, token string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if token == "" {
		return ErrEmptyToken
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, held := c.locks[key]; held && entry.token == token {
		delete(c.locks, key)
	}
	return nil
}
