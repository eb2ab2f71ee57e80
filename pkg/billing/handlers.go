package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/creditkit/pkg/ledger"
	"github.com/dmitrymomot/creditkit/pkg/subscription"
)

// TxRunner executes a function within a storage transaction. The function's
// context carries the transaction so nested store calls join it.
// ledger.Store implementations satisfy this interface.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventHandlers applies billing events to the subscription store and the
// credit ledger. Multi-entity handlers run both writes inside one
// transaction so a crash mid-event cannot leave a subscription without its
// credit grant.
type EventHandlers struct {
	credits *ledger.Service
	subs    subscription.Store
	plans   subscription.Source
	tx      TxRunner
	log     *slog.Logger
	now     func() time.Time
}

// HandlersOption configures EventHandlers.
type HandlersOption func(*EventHandlers)

// WithHandlersLogger sets the logger for handler diagnostics.
func WithHandlersLogger(log *slog.Logger) HandlersOption {
	return func(h *EventHandlers) {
		if log != nil {
			h.log = log
		}
	}
}

// NewEventHandlers creates the standard handler set. All dependencies are
// required.
func NewEventHandlers(credits *ledger.Service, subs subscription.Store, plans subscription.Source, tx TxRunner, opts ...HandlersOption) *EventHandlers {
	if credits == nil {
		panic("billing: ledger service is required")
	}
	if subs == nil {
		panic("billing: subscription store is required")
	}
	if plans == nil {
		panic("billing: plan source is required")
	}
	if tx == nil {
		panic("billing: transaction runner is required")
	}
	h := &EventHandlers{
		credits: credits,
		subs:    subs,
		plans:   plans,
		tx:      tx,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterAll binds the standard handlers to the processor. Handlers that
// touch both the subscription and the ledger register as critical.
func (h *EventHandlers) RegisterAll(p *Processor) {
	p.RegisterCritical(EventSubscriptionCreated, h.SubscriptionCreated)
	p.RegisterCritical(EventSubscriptionUpdated, h.SubscriptionUpdated)
	p.RegisterCritical(EventSubscriptionCancelled, h.SubscriptionCancelled)
	p.RegisterCritical(EventPaymentSucceeded, h.PaymentSucceeded)
	p.Register(EventPaymentFailed, h.PaymentFailed)
	p.Register(EventCheckoutCompleted, h.CheckoutCompleted)
}

// SubscriptionCreated records the new subscription and grants the plan's
// monthly credits atomically.
func (h *EventHandlers) SubscriptionCreated(ctx context.Context, event *Event) error {
	tenantID, err := h.tenantID(event)
	if err != nil {
		return err
	}
	plan, err := h.planFor(ctx, event.PlanID)
	if err != nil {
		return err
	}

	now := h.now().UTC()
	sub := &subscription.Subscription{
		TenantID:         tenantID,
		PlanID:           plan.ID,
		Status:           mapSubscriptionStatus(event.Status),
		ProviderSubID:    event.SubscriptionID,
		CurrentPeriodEnd: event.PeriodEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	return h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := h.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
		_, err := h.credits.GrantMonthlyCredits(ctx, tenantID, plan.MonthlyCredits, "subscription", eventKey(event), eventMetadata(event))
		return err
	})
}

// SubscriptionUpdated mirrors status and period changes, and on a plan
// change adjusts the monthly allocation. Upgrades grant the credit delta
// immediately; downgrades take effect at the next reset.
func (h *EventHandlers) SubscriptionUpdated(ctx context.Context, event *Event) error {
	tenantID, err := h.tenantID(event)
	if err != nil {
		return err
	}

	sub, err := h.subs.Get(ctx, tenantID)
	if errors.Is(err, subscription.ErrNotFound) {
		// Out-of-order delivery: the update arrived before the create.
		return h.SubscriptionCreated(ctx, event)
	}
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	planChanged := event.PlanID != "" && event.PlanID != sub.PlanID
	var plan subscription.Plan
	if planChanged {
		plan, err = h.planFor(ctx, event.PlanID)
		if err != nil {
			return err
		}
		sub.PlanID = plan.ID
	}
	if event.Status != "" {
		sub.Status = mapSubscriptionStatus(event.Status)
	}
	if event.PeriodEnd != nil {
		sub.CurrentPeriodEnd = event.PeriodEnd
	}
	sub.UpdatedAt = h.now().UTC()

	return h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := h.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
		if !planChanged {
			return nil
		}
		_, err := h.credits.ChangeMonthlyAllocation(ctx, tenantID, plan.MonthlyCredits, "subscription", eventKey(event), eventMetadata(event))
		return err
	})
}

// SubscriptionCancelled marks the subscription cancelled and revokes the
// remaining credit balance atomically.
func (h *EventHandlers) SubscriptionCancelled(ctx context.Context, event *Event) error {
	tenantID, err := h.tenantID(event)
	if err != nil {
		return err
	}

	sub, err := h.subs.Get(ctx, tenantID)
	if errors.Is(err, subscription.ErrNotFound) {
		// Nothing was ever provisioned for this tenant.
		h.log.WarnContext(ctx, "cancellation for unknown subscription",
			slog.String("tenant_id", tenantID.String()),
			slog.String("event_id", event.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	now := h.now().UTC()
	sub.Status = subscription.StatusCancelled
	sub.CancelledAt = &now
	sub.UpdatedAt = now

	return h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := h.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
		_, err := h.credits.RevokeCredits(ctx, tenantID, "subscription", eventKey(event), eventMetadata(event))
		return err
	})
}

// PaymentSucceeded resets monthly credits when the billing period advanced.
// The first invoice after subscription.created carries the same period end,
// so the advance check prevents a double grant.
func (h *EventHandlers) PaymentSucceeded(ctx context.Context, event *Event) error {
	tenantID, err := h.tenantID(event)
	if err != nil {
		return err
	}

	sub, err := h.subs.Get(ctx, tenantID)
	if errors.Is(err, subscription.ErrNotFound) {
		h.log.WarnContext(ctx, "payment for unknown subscription",
			slog.String("tenant_id", tenantID.String()),
			slog.String("event_id", event.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	renewal := event.PeriodEnd != nil &&
		(sub.CurrentPeriodEnd == nil || event.PeriodEnd.After(*sub.CurrentPeriodEnd))

	if event.PeriodEnd != nil {
		sub.CurrentPeriodEnd = event.PeriodEnd
	}
	sub.Status = subscription.StatusActive
	sub.UpdatedAt = h.now().UTC()

	return h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := h.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
		if !renewal {
			return nil
		}
		_, err := h.credits.ResetMonthlyCredits(ctx, tenantID, eventKey(event), eventMetadata(event))
		return err
	})
}

// PaymentFailed marks the subscription past due. Credits remain until the
// provider cancels the subscription.
func (h *EventHandlers) PaymentFailed(ctx context.Context, event *Event) error {
	tenantID, err := h.tenantID(event)
	if err != nil {
		return err
	}

	sub, err := h.subs.Get(ctx, tenantID)
	if errors.Is(err, subscription.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	sub.Status = subscription.StatusPastDue
	sub.UpdatedAt = h.now().UTC()
	if err := h.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// CheckoutCompleted adds one-time purchased credits. Transactions without a
// credits amount are subscription invoices and are ignored.
func (h *EventHandlers) CheckoutCompleted(ctx context.Context, event *Event) error {
	if event.Credits <= 0 {
		return nil
	}
	tenantID, err := h.tenantID(event)
	if err != nil {
		return err
	}
	_, err = h.credits.AddCredits(ctx, tenantID, event.Credits, "purchase", eventKey(event), eventMetadata(event))
	return err
}

func (h *EventHandlers) tenantID(event *Event) (uuid.UUID, error) {
	if event.CustomerID == "" {
		return uuid.Nil, ErrUnknownTenant
	}
	tenantID, err := uuid.Parse(event.CustomerID)
	if err != nil {
		return uuid.Nil, errors.Join(ErrUnknownTenant, err)
	}
	return tenantID, nil
}

func (h *EventHandlers) planFor(ctx context.Context, planID string) (subscription.Plan, error) {
	if planID == "" {
		return subscription.Plan{}, fmt.Errorf("%w: event has no price ID", subscription.ErrPlanNotFound)
	}
	plans, err := h.plans.Load(ctx)
	if err != nil {
		return subscription.Plan{}, fmt.Errorf("failed to load plan catalog: %w", err)
	}
	plan, ok := plans[planID]
	if !ok {
		return subscription.Plan{}, fmt.Errorf("%w: %s", subscription.ErrPlanNotFound, planID)
	}
	return plan, nil
}

// eventKey derives the ledger idempotency key for an event, so a redelivered
// event replays as a duplicate instead of a second mutation.
func eventKey(event *Event) string {
	return "evt:" + event.ID
}

func eventMetadata(event *Event) map[string]any {
	return map[string]any{
		"event_id":       event.ID,
		"provider_event": event.ProviderEvent,
	}
}

func mapSubscriptionStatus(status string) subscription.Status {
	switch strings.ToLower(status) {
	case "trialing":
		return subscription.StatusTrialing
	case "past_due":
		return subscription.StatusPastDue
	case "paused":
		return subscription.StatusPaused
	case "canceled", "cancelled":
		return subscription.StatusCancelled
	case "expired":
		return subscription.StatusExpired
	default:
		return subscription.StatusActive
	}
}
