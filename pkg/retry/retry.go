package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

var ErrInvalidAttempts = errors.New("retry attempts must be positive")

// BackoffStrategy calculates the delay before the next retry.
// Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the backoff duration after the given attempt.
	// Attempt starts at 1 for the first failed attempt.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter.
// Jitter spreads retry times so concurrent losers of an optimistic-concurrency
// race do not collide again on the same schedule.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval returns min(InitialInterval * Multiplier^(attempt-1) * (1 ± JitterFactor), MaxInterval).
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = 10 * time.Millisecond
	}

	max := e.MaxInterval
	if max == 0 {
		max = time.Second
	}

	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		interval = interval * (1 + randomJitter)
	}

	if interval > float64(max) {
		interval = float64(max)
	}

	return time.Duration(interval)
}

// FixedBackoff waits the same interval between every retry.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoff returns jittered exponential backoff tuned for in-process
// conflict retries: short initial delay, capped well below request timeouts.
func DefaultBackoff() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
		Multiplier:      2,
		JitterFactor:    0.2,
	}
}

// Do runs fn up to maxAttempts times, sleeping between attempts according to
// strategy. Only errors for which retryable returns true are retried; any
// other error is returned immediately. When attempts are exhausted the last
// error is returned. A nil retryable predicate retries every error.
func Do(ctx context.Context, maxAttempts int, strategy BackoffStrategy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		return ErrInvalidAttempts
	}
	if strategy == nil {
		strategy = DefaultBackoff()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(strategy.NextInterval(attempt)):
		}
	}

	return lastErr
}
