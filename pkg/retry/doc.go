// Package retry provides a small bounded-retry combinator for wrapping a
// single atomic attempt, primarily the optimistic-concurrency path of ledger
// mutations. It retries only errors the caller declares retryable, sleeps
// between attempts according to a pluggable backoff strategy, and gives up
// after a fixed number of attempts.
//
//	err := retry.Do(ctx, 3, retry.DefaultBackoff(), isConflict, func(ctx context.Context) error {
//	    return attemptMutation(ctx)
//	})
//
// Jittered exponential backoff is the default to avoid coordinated retry
// storms under high contention.
package retry
