package ledger

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/creditkit/pkg/idempotency"
	"github.com/dmitrymomot/creditkit/pkg/retry"
)

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithIdempotencyStore enables the advisory duplicate pre-check. The store
// is an optimization; the transaction log's unique index stays authoritative.
func WithIdempotencyStore(store idempotency.Store) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.idem = store
		}
	}
}

// WithBalanceCache enables the advisory read cache for GetBalance.
func WithBalanceCache(cache BalanceCache) ServiceOption {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithEmitter sets the domain event emitter. Nil emitters are ignored.
func WithEmitter(emitter Emitter) ServiceOption {
	return func(s *Service) {
		if emitter != nil {
			s.emitter = emitter
		}
	}
}

// WithPricing sets the per-operation price table.
func WithPricing(pricing *Pricing) ServiceOption {
	return func(s *Service) {
		if pricing != nil {
			s.pricing = pricing
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMaxAttempts bounds the internal retries on optimistic-concurrency
// conflicts. Panics on non-positive values to fail fast during initialization.
func WithMaxAttempts(attempts int) ServiceOption {
	if attempts <= 0 {
		panic("ledger: max attempts must be positive")
	}
	return func(s *Service) { s.maxAttempts = attempts }
}

// WithBackoff sets the backoff strategy between conflict retries.
func WithBackoff(strategy retry.BackoffStrategy) ServiceOption {
	return func(s *Service) {
		if strategy != nil {
			s.backoff = strategy
		}
	}
}

// WithLowBalanceFraction sets the fraction of the monthly allocation under
// which a credits.low_balance event is emitted after consumption.
func WithLowBalanceFraction(fraction float64) ServiceOption {
	if fraction < 0 || fraction > 1 {
		panic("ledger: low balance fraction must be within [0, 1]")
	}
	return func(s *Service) { s.lowBalanceFraction = fraction }
}

// WithIdempotencyTTL sets the retention of advisory idempotency records.
// Choose it conservatively longer than the payment provider's maximum
// redelivery window; the unique index backstops expiry.
func WithIdempotencyTTL(ttl time.Duration) ServiceOption {
	if ttl <= 0 {
		panic("ledger: idempotency TTL must be positive")
	}
	return func(s *Service) { s.idemTTL = ttl }
}
