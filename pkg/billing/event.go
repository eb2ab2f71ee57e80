package billing

import (
	"context"
	"time"
)

// EventType is the provider-agnostic classification of a webhook event.
// Provider adapters map their native event names onto these types; event
// types without a registered handler are acknowledged and ignored.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription.created"
	EventSubscriptionUpdated   EventType = "subscription.updated"
	EventSubscriptionCancelled EventType = "subscription.cancelled"

	EventPaymentSucceeded EventType = "payment.succeeded"
	EventPaymentFailed    EventType = "payment.failed"

	// EventCheckoutCompleted is a one-time credit purchase outside any
	// subscription.
	EventCheckoutCompleted EventType = "checkout.completed"
)

// Event is a verified, normalized webhook event. It is transient: it flows
// through the processor once and is not persisted beyond the idempotency
// record of its ID.
type Event struct {
	ID            string
	Type          EventType
	ProviderEvent string // original provider event name

	CustomerID     string // tenant UUID carried in provider custom data
	SubscriptionID string
	PlanID         string // provider price ID
	Status         string

	PeriodEnd *time.Time
	Credits   int64 // purchased credits for one-time checkouts

	Raw        map[string]any
	ReceivedAt time.Time
}

// Provider verifies and normalizes raw webhook deliveries.
type Provider interface {
	// ParseWebhook validates the payload signature and returns the
	// normalized event. Returns ErrWebhookVerificationFailed for spoofed or
	// corrupted deliveries.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// Decision is the processor's acknowledgement verdict for one delivery.
type Decision string

const (
	// DecisionAcknowledged: the event was fully applied.
	DecisionAcknowledged Decision = "acknowledged"
	// DecisionDuplicate: the event was already applied earlier; no side
	// effects were repeated.
	DecisionDuplicate Decision = "acknowledged_duplicate"
	// DecisionRetry: a transient failure occurred; the provider should
	// redeliver later.
	DecisionRetry Decision = "retryable_failure"
	// DecisionFatal: the event can never succeed; it is acknowledged so the
	// provider stops redelivering, and the failure is logged.
	DecisionFatal Decision = "fatal_acknowledged"
)

// ShouldRetry reports whether the HTTP layer should signal the provider to
// redeliver.
func (d Decision) ShouldRetry() bool {
	return d == DecisionRetry
}
