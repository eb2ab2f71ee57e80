package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a subscription.
type Status string

const (
	StatusTrialing  Status = "trialing"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Subscription holds a tenant's subscription state as mirrored from the
// payment provider. Each tenant has exactly one subscription at a time, so
// TenantID serves as the primary key.
type Subscription struct {
	TenantID         uuid.UUID  `json:"tenant_id"`
	PlanID           string     `json:"plan_id"`
	Status           Status     `json:"status"`
	ProviderSubID    string     `json:"provider_sub_id"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

// IsActive reports whether the subscription entitles the tenant to its plan.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// IsCancelled reports whether the subscription has been cancelled.
func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}
