package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/creditkit/pkg/lock"
)

func TestMemoryCoordinator_AcquireRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	coord := lock.NewMemoryCoordinator()

	tokenA := lock.NewToken()
	ok, err := coord.Acquire(ctx, "tenant:42", tokenA, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "first acquire should win")

	// Second acquisition under a different token must be refused while held.
	tokenB := lock.NewToken()
	ok, err = coord.Acquire(ctx, "tenant:42", tokenB, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, coord.Release(ctx, "tenant:42", tokenA))

	ok, err = coord.Acquire(ctx, "tenant:42", tokenB, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock should be free after release")
}

func TestMemoryCoordinator_ForeignTokenIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	coord := lock.NewMemoryCoordinator()

	tokenA := lock.NewToken()
	tokenB := lock.NewToken()

	ok, err := coord.Acquire(ctx, "tenant:7:subscription", tokenA, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// B releasing with its own token must not free A's lock.
	require.NoError(t, coord.Release(ctx, "tenant:7:subscription", tokenB))

	ok, err = coord.Acquire(ctx, "tenant:7:subscription", tokenB, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock must still be held by A")

	require.NoError(t, coord.Release(ctx, "tenant:7:subscription", tokenA))

	ok, err = coord.Acquire(ctx, "tenant:7:subscription", tokenB, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCoordinator_ExpiredLockIsReacquirable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	coord := lock.NewMemoryCoordinator()

	ok, err := coord.Acquire(ctx, "tenant:9", lock.NewToken(), 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = coord.Acquire(ctx, "tenant:9", lock.NewToken(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be available again")
}

func TestMemoryCoordinator_SingleWinnerUnderContention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	coord := lock.NewMemoryCoordinator()

	const goroutines = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			ok, err := coord.Acquire(ctx, "tenant:contended", lock.NewToken(), time.Minute)
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one goroutine may hold the lock")
}

func TestGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	coord := lock.NewMemoryCoordinator()

	release, acquired, err := lock.Guard(ctx, coord, "tenant:3:subscription", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	require.NotNil(t, release)

	// Second guard on the same key must lose while the first holds it.
	second, acquired, err := lock.Guard(ctx, coord, "tenant:3:subscription", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Nil(t, second)

	require.NoError(t, release(ctx))

	_, acquired, err = lock.Guard(ctx, coord, "tenant:3:subscription", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestCoordinator_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	coord := lock.NewMemoryCoordinator()

	_, err := coord.Acquire(ctx, "", "token", time.Minute)
	assert.ErrorIs(t, err, lock.ErrEmptyKey)

	_, err = coord.Acquire(ctx, "key", "", time.Minute)
	assert.ErrorIs(t, err, lock.ErrEmptyToken)

	_, err = coord.Acquire(ctx, "key", "token", 0)
	assert.ErrorIs(t, err, lock.ErrInvalidTTL)

	assert.ErrorIs(t, coord.Release(ctx, "", "token"), lock.ErrEmptyKey)
	assert.ErrorIs(t, coord.Release(ctx, "key", ""), lock.ErrEmptyToken)
}
