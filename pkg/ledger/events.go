package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Domain event types emitted by the service. Delivery is fire-and-forget,
// at-least-once; consumers (notifications, metrics) must tolerate duplicates.
const (
	EventCreditsAdded        = "credits.added"
	EventCreditsConsumed     = "credits.consumed"
	EventCreditsLowBalance   = "credits.low_balance"
	EventCreditsInsufficient = "credits.insufficient"
)

// Event is a domain event describing a ledger state change or a rejected
// consumption attempt. It is a side-channel notification, not part of the
// ledger's consistency invariant.
type Event struct {
	Type       string
	TenantID   uuid.UUID
	Amount     int64
	Balance    int64
	Operation  string
	OccurredAt time.Time
}

// Emitter delivers domain events. Implementations must not block the
// mutation path; slow consumers should buffer or drop.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, event Event)

func (f EmitterFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, Event) {}
