package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/creditkit/pkg/retry"
)

var errConflict = errors.New("version conflict")

func isConflict(err error) bool { return errors.Is(err, errConflict) }

func TestDo_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), 3, retry.FixedBackoff{Interval: time.Millisecond}, isConflict,
		func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errConflict
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), 3, retry.FixedBackoff{Interval: time.Millisecond}, isConflict,
		func(ctx context.Context) error {
			calls++
			return errConflict
		})

	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	fatal := errors.New("insufficient credits")
	calls := 0
	err := retry.Do(context.Background(), 5, retry.FixedBackoff{Interval: time.Millisecond}, isConflict,
		func(ctx context.Context) error {
			calls++
			return fatal
		})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Do(ctx, 3, retry.FixedBackoff{Interval: time.Millisecond}, nil,
		func(ctx context.Context) error { return errConflict })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_InvalidAttempts(t *testing.T) {
	t.Parallel()

	err := retry.Do(context.Background(), 0, nil, nil, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, retry.ErrInvalidAttempts)
}

func TestExponentialBackoff_GrowthAndCap(t *testing.T) {
	t.Parallel()

	backoff := retry.ExponentialBackoff{
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     40 * time.Millisecond,
		Multiplier:      2,
	}

	assert.Equal(t, 10*time.Millisecond, backoff.NextInterval(1))
	assert.Equal(t, 20*time.Millisecond, backoff.NextInterval(2))
	assert.Equal(t, 40*time.Millisecond, backoff.NextInterval(3))
	assert.Equal(t, 40*time.Millisecond, backoff.NextInterval(10), "capped at MaxInterval")
	assert.Equal(t, time.Duration(0), backoff.NextInterval(0))
}

func TestExponentialBackoff_JitterStaysInBounds(t *testing.T) {
	t.Parallel()

	backoff := retry.ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		JitterFactor:    0.2,
	}

	for range 100 {
		interval := backoff.NextInterval(1)
		assert.GreaterOrEqual(t, interval, 80*time.Millisecond)
		assert.LessOrEqual(t, interval, 120*time.Millisecond)
	}
}
