package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BalanceCache is a strictly advisory read cache for accounts. It must never
// be used as the basis for a mutation; mutations always re-read authoritative
// state inside the atomic step. Implementations swallow their own errors —
// a broken cache degrades to reading the store.
type BalanceCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*Account, bool)
	Set(ctx context.Context, account *Account)
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// RedisBalanceCache caches accounts in Redis with a short TTL.
type RedisBalanceCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisBalanceCache creates a Redis-backed balance cache.
// Panics if client is nil to fail fast during initialization.
func NewRedisBalanceCache(client redis.UniversalClient, ttl time.Duration) *RedisBalanceCache {
	if client == nil {
		panic("ledger: redis client is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisBalanceCache{
		client: client,
		prefix: "credits:balance:",
		ttl:    ttl,
	}
}

func (c *RedisBalanceCache) Get(ctx context.Context, tenantID uuid.UUID) (*Account, bool) {
	data, err := c.client.Get(ctx, c.prefix+tenantID.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, false
	}
	return &account, true
}

func (c *RedisBalanceCache) Set(ctx context.Context, account *Account) {
	data, err := json.Marshal(account)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+account.TenantID.String(), data, c.ttl).Err()
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	_ = c.client.Del(ctx, c.prefix+tenantID.String()).Err()
}
