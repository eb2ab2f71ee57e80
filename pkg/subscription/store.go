package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store persists subscription state. Each tenant has exactly one
// subscription, so TenantID is the primary key.
//
// Save must participate in any multi-document transaction carried by the
// context: webhook handlers update subscription state and the credit ledger
// atomically.
type Store interface {
	// Get retrieves a subscription by tenant ID.
	// Returns ErrNotFound if no subscription exists.
	Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// Save creates or updates a subscription keyed by TenantID.
	Save(ctx context.Context, subscription *Subscription) error
}
