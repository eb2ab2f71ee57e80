package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountUpdate describes the fields written by a conditional account update.
// Balance is always written; optional fields are written only when non-nil.
type AccountUpdate struct {
	Balance           int64
	MonthlyAllocation *int64
	AdditionalCredits *int64
	ResetDate         *time.Time

	// RequireBalanceAtLeast adds a balance >= N clause to the update filter
	// on top of the version match. Consumption uses it as a write-time guard
	// against overdraft, making the precondition check race-free.
	RequireBalanceAtLeast *int64
}

// Store is the persistence contract for accounts and the transaction log.
// Implementations must enforce a unique constraint on the transaction
// idempotency key and support conditional (version-matched) account updates.
type Store interface {
	// GetAccount returns the tenant's account or ErrAccountNotFound.
	GetAccount(ctx context.Context, tenantID uuid.UUID) (*Account, error)

	// CreateAccount inserts a new account. Returns ErrAccountExists when an
	// account for the tenant already exists (lazily-created accounts race).
	CreateAccount(ctx context.Context, account *Account) error

	// UpdateAccount applies update to the account matching
	// {tenantID, version} (plus any RequireBalanceAtLeast clause),
	// incrementing the version. Returns false when no document matched,
	// which callers surface as ErrConcurrencyConflict.
	UpdateAccount(ctx context.Context, tenantID uuid.UUID, version int64, update AccountUpdate) (bool, error)

	// InsertTransaction appends an immutable transaction row. Returns
	// ErrDuplicateTransaction when the idempotency key is already recorded.
	InsertTransaction(ctx context.Context, tx *Transaction) error

	// FindTransactionByKey returns the transaction recorded under the given
	// idempotency key, or ErrTransactionNotFound.
	FindTransactionByKey(ctx context.Context, idempotencyKey string) (*Transaction, error)

	// ListTransactions returns the tenant's transactions newest first.
	ListTransactions(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Transaction, error)

	// SumTransactionAmounts returns the sum of all signed transaction
	// amounts for the tenant. Used for reconciliation against the balance.
	SumTransactionAmounts(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// WithinTransaction runs fn inside one atomic multi-document
	// transaction. Nested calls join the ambient transaction instead of
	// starting a new one.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
