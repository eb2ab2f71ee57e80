package ledger

import "errors"

var (
	ErrAccountNotFound     = errors.New("credit account not found")
	ErrAccountExists       = errors.New("credit account already exists")
	ErrTransactionNotFound = errors.New("credit transaction not found")

	// ErrInsufficientCredits is a hard precondition failure, never retried
	// automatically. The caller must add funds.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrConcurrencyConflict means the conditional update matched no
	// document because another writer advanced the account version first.
	// Retried internally up to a bound, then surfaced.
	ErrConcurrencyConflict = errors.New("credit account version conflict")

	// ErrDuplicateTransaction means a transaction with the same idempotency
	// key already exists. Callers treat it as success and return the
	// originally recorded transaction.
	ErrDuplicateTransaction = errors.New("duplicate transaction idempotency key")

	// ErrBalanceMismatch is returned by reconciliation when the account
	// balance no longer equals the sum of its transaction amounts.
	ErrBalanceMismatch = errors.New("account balance does not match transaction log")

	ErrInvalidAmount         = errors.New("credit amount must be positive")
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	ErrMissingTenantID       = errors.New("tenant ID is required")
)
