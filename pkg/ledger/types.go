package ledger

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeAddition    TransactionType = "addition"
	TypeConsumption TransactionType = "consumption"
	TypeGrant       TransactionType = "grant"
	TypeRefund      TransactionType = "refund"
	TypeTransfer    TransactionType = "transfer"
)

// Account holds a tenant's credit balance. Exactly one account exists per
// tenant, created lazily on first access and never deleted.
//
// Balance is the single contended resource for a tenant. It is only ever
// mutated through a conditional update matching the current Version, which
// increments on every successful mutation.
type Account struct {
	TenantID          uuid.UUID `bson:"tenant_id" json:"tenant_id"`
	Balance           int64     `bson:"balance" json:"balance"`
	Version           int64     `bson:"version" json:"version"`
	MonthlyAllocation int64     `bson:"monthly_allocation" json:"monthly_allocation"`
	AdditionalCredits int64     `bson:"additional_credits" json:"additional_credits"`
	ResetDate         time.Time `bson:"reset_date" json:"reset_date"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// Transaction is an immutable, append-only audit record of one balance
// mutation. Amount is signed: positive for additions, negative for
// consumptions. Replaying all of a tenant's transactions in creation order
// and summing Amount reproduces the account balance exactly.
type Transaction struct {
	ID             string          `bson:"_id" json:"id"`
	TenantID       uuid.UUID       `bson:"tenant_id" json:"tenant_id"`
	IdempotencyKey string          `bson:"idempotency_key" json:"idempotency_key"`
	Type           TransactionType `bson:"type" json:"type"`
	Amount         int64           `bson:"amount" json:"amount"`
	BalanceBefore  int64           `bson:"balance_before" json:"balance_before"`
	BalanceAfter   int64           `bson:"balance_after" json:"balance_after"`
	Source         string          `bson:"source,omitempty" json:"source,omitempty"`
	Operation      string          `bson:"operation,omitempty" json:"operation,omitempty"`
	Metadata       map[string]any  `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
}

// Result is the outcome of a successful (or deduplicated) mutation.
type Result struct {
	NewBalance  int64
	Transaction *Transaction
	// Duplicate is true when the mutation was previously applied and the
	// originally recorded transaction is returned unchanged.
	Duplicate bool
}
