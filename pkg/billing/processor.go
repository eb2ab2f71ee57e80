package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/creditkit/pkg/idempotency"
	"github.com/dmitrymomot/creditkit/pkg/ledger"
	"github.com/dmitrymomot/creditkit/pkg/lock"
	"github.com/dmitrymomot/creditkit/pkg/subscription"
)

// Handler applies one verified event. Handlers must be idempotent: the
// processor's deduplication is advisory and the provider may redeliver an
// event that was already applied.
type Handler func(ctx context.Context, event *Event) error

// Processor routes verified events to registered handlers with
// deduplication, and serializes critical handlers behind a per-tenant
// distributed lock.
type Processor struct {
	dedup    idempotency.Store
	locker   lock.Coordinator
	handlers map[EventType]Handler
	critical map[EventType]bool
	fatal    []error

	log      *slog.Logger
	lockTTL  time.Duration
	dedupTTL time.Duration
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the logger for event routing decisions.
func WithProcessorLogger(log *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}

// WithLockTTL overrides the per-tenant lock lease for critical handlers.
func WithLockTTL(ttl time.Duration) ProcessorOption {
	return func(p *Processor) {
		if ttl > 0 {
			p.lockTTL = ttl
		}
	}
}

// WithDedupTTL overrides how long processed event IDs are remembered.
func WithDedupTTL(ttl time.Duration) ProcessorOption {
	return func(p *Processor) {
		if ttl > 0 {
			p.dedupTTL = ttl
		}
	}
}

// WithFatalErrors registers additional errors that acknowledge the event
// instead of requesting redelivery.
func WithFatalErrors(errs ...error) ProcessorOption {
	return func(p *Processor) {
		p.fatal = append(p.fatal, errs...)
	}
}

// NewProcessor creates an event processor. Both stores are required;
// critical handlers additionally need the lock coordinator at registration
// time.
func NewProcessor(dedup idempotency.Store, locker lock.Coordinator, opts ...ProcessorOption) *Processor {
	if dedup == nil {
		panic("billing: idempotency store is required")
	}
	p := &Processor{
		dedup:    dedup,
		locker:   locker,
		handlers: make(map[EventType]Handler),
		critical: make(map[EventType]bool),
		fatal: []error{
			ErrInvalidEventPayload,
			ErrUnknownTenant,
			ledger.ErrInvalidAmount,
			ledger.ErrMissingTenantID,
			subscription.ErrPlanNotFound,
		},
		log:      slog.Default(),
		lockTTL:  30 * time.Second,
		dedupTTL: 72 * time.Hour,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register binds a handler to an event type. An existing binding is
// replaced.
func (p *Processor) Register(eventType EventType, handler Handler) {
	if handler == nil {
		panic("billing: handler is required")
	}
	p.handlers[eventType] = handler
	delete(p.critical, eventType)
}

// RegisterCritical binds a handler that mutates multiple entities and must
// run serialized per tenant. The processor acquires the tenant lock before
// invoking it.
func (p *Processor) RegisterCritical(eventType EventType, handler Handler) {
	if handler == nil {
		panic("billing: handler is required")
	}
	if p.locker == nil {
		panic("billing: lock coordinator is required for critical handlers")
	}
	p.handlers[eventType] = handler
	p.critical[eventType] = true
}

// Handle processes one verified event and returns the acknowledgement
// decision for the HTTP layer. It never returns an error: failures are
// folded into the decision.
func (p *Processor) Handle(ctx context.Context, event *Event) Decision {
	if event == nil || event.ID == "" {
		p.log.ErrorContext(ctx, "rejected event without ID")
		return DecisionFatal
	}

	log := p.log.With(
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.String("customer_id", event.CustomerID),
	)

	processed, err := p.dedup.WasProcessed(ctx, event.ID)
	if err != nil {
		// Handlers are idempotent, so a dedup outage degrades to repeated
		// no-op work rather than double application.
		log.WarnContext(ctx, "dedup check failed, processing anyway", slog.Any("error", err))
	} else if processed {
		log.InfoContext(ctx, "duplicate event skipped")
		return DecisionDuplicate
	}

	handler, ok := p.handlers[event.Type]
	if !ok {
		log.DebugContext(ctx, "no handler registered, event acknowledged")
		return DecisionAcknowledged
	}

	if p.critical[event.Type] {
		if event.CustomerID == "" {
			log.ErrorContext(ctx, "critical event without customer ID")
			return DecisionFatal
		}
		lockKey := fmt.Sprintf("tenant:%s:subscription", event.CustomerID)
		release, acquired, err := lock.Guard(ctx, p.locker, lockKey, p.lockTTL)
		if err != nil || !acquired {
			if err == nil {
				err = ErrLockUnavailable
			}
			log.InfoContext(ctx, "tenant lock unavailable, requesting redelivery", slog.Any("error", err))
			return DecisionRetry
		}
		defer func() {
			// Release even when the request context was cancelled mid-flight.
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.WarnContext(ctx, "failed to release tenant lock", slog.Any("error", err))
			}
		}()
	}

	err = p.invoke(ctx, handler, event)
	if err == nil {
		p.markProcessed(ctx, log, event)
		log.InfoContext(ctx, "event applied")
		return DecisionAcknowledged
	}

	if p.isFatal(err) {
		p.markProcessed(ctx, log, event)
		log.ErrorContext(ctx, "event permanently rejected", slog.Any("error", err))
		return DecisionFatal
	}

	log.WarnContext(ctx, "event failed, requesting redelivery", slog.Any("error", err))
	return DecisionRetry
}

// invoke runs the handler with panic containment so one faulty handler
// cannot take down the webhook endpoint.
func (p *Processor) invoke(ctx context.Context, handler Handler, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

func (p *Processor) markProcessed(ctx context.Context, log *slog.Logger, event *Event) {
	if err := p.dedup.MarkProcessed(ctx, event.ID, p.dedupTTL); err != nil {
		log.WarnContext(ctx, "failed to record processed event", slog.Any("error", err))
	}
}

func (p *Processor) isFatal(err error) bool {
	for _, fatal := range p.fatal {
		if errors.Is(err, fatal) {
			return true
		}
	}
	return false
}
