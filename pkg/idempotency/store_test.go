package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/creditkit/pkg/idempotency"
)

func TestMemoryStore_MarkAndCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := idempotency.NewMemoryStore()

	processed, err := store.WasProcessed(ctx, "evt_123")
	require.NoError(t, err)
	assert.False(t, processed, "unknown key must not be reported processed")

	require.NoError(t, store.MarkProcessed(ctx, "evt_123", time.Hour))

	processed, err = store.WasProcessed(ctx, "evt_123")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestMemoryStore_EntryExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := idempotency.NewMemoryStore()

	require.NoError(t, store.MarkProcessed(ctx, "evt_expiring", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	processed, err := store.WasProcessed(ctx, "evt_expiring")
	require.NoError(t, err)
	assert.False(t, processed, "expired entry must be treated as unseen")
}

func TestMemoryStore_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := idempotency.NewMemoryStore()

	_, err := store.WasProcessed(ctx, "")
	assert.ErrorIs(t, err, idempotency.ErrEmptyKey)

	assert.ErrorIs(t, store.MarkProcessed(ctx, "", time.Hour), idempotency.ErrEmptyKey)
	assert.ErrorIs(t, store.MarkProcessed(ctx, "evt", 0), idempotency.ErrInvalidTTL)
}
