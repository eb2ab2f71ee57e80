package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/creditkit/pkg/idempotency"
	"github.com/dmitrymomot/creditkit/pkg/retry"
)

// Service owns account balances and the transaction log. All mutations are
// idempotent (caller-supplied key), optimistic (version-matched conditional
// update, bounded retry on conflict) and atomic (single store transaction
// per attempt).
type Service struct {
	store   Store
	idem    idempotency.Store
	cache   BalanceCache
	emitter Emitter
	pricing *Pricing
	log     *slog.Logger

	maxAttempts        int
	backoff            retry.BackoffStrategy
	lowBalanceFraction float64
	idemTTL            time.Duration
	now                func() time.Time
}

// NewService creates a ledger service around the given store.
// Panics if store is nil to fail fast during initialization.
func NewService(store Store, opts ...ServiceOption) *Service {
	if store == nil {
		panic("ledger: store is required")
	}
	s := &Service{
		store:              store,
		emitter:            noopEmitter{},
		pricing:            NewPricing(1),
		log:                slog.Default(),
		maxAttempts:        3,
		backoff:            retry.DefaultBackoff(),
		lowBalanceFraction: 0.1,
		idemTTL:            72 * time.Hour,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutationSpec describes one balance mutation. compute receives the account
// as read inside the atomic step and returns the signed delta plus the
// conditional update to apply.
type mutationSpec struct {
	txType    TransactionType
	source    string
	operation string
	compute   func(account *Account) (delta int64, update AccountUpdate, err error)
}

// GetBalance returns the tenant's account, creating it with a zero balance
// on first access. Reads may be served from the advisory cache; mutations
// never are.
func (s *Service) GetBalance(ctx context.Context, tenantID uuid.UUID) (*Account, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenantID
	}

	if s.cache != nil {
		if account, ok := s.cache.Get(ctx, tenantID); ok {
			return account, nil
		}
	}

	account, err := s.getOrCreateAccount(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, account)
	}
	return account, nil
}

// AddCredits credits the tenant's balance. Purchased credits also raise the
// additional-credits carryover so they survive the monthly reset.
func (s *Service) AddCredits(ctx context.Context, tenantID uuid.UUID, amount int64, source, idempotencyKey string, metadata map[string]any) (*Result, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.apply(ctx, tenantID, idempotencyKey, metadata, mutationSpec{
		txType: TypeAddition,
		source: source,
		compute: func(account *Account) (int64, AccountUpdate, error) {
			additional := account.AdditionalCredits + amount
			return amount, AccountUpdate{
				Balance:           account.Balance + amount,
				AdditionalCredits: &additional,
			}, nil
		},
	})
}

// ConsumeCredits debits the cost of operation from the tenant's balance.
// The cost comes from the price table. Insufficient funds is a hard
// precondition failure, checked before mutating and additionally guarded at
// write time; it is never turned into a retry.
func (s *Service) ConsumeCredits(ctx context.Context, tenantID uuid.UUID, operation, idempotencyKey string, metadata map[string]any) (*Result, error) {
	cost := s.pricing.CostOf(operation)

	result, err := s.apply(ctx, tenantID, idempotencyKey, metadata, mutationSpec{
		txType:    TypeConsumption,
		operation: operation,
		compute: func(account *Account) (int64, AccountUpdate, error) {
			if account.Balance < cost {
				return 0, AccountUpdate{}, ErrInsufficientCredits
			}
			newBalance := account.Balance - cost
			// Monthly credits burn first; the purchased carryover shrinks
			// only once the balance dips below it.
			additional := min(account.AdditionalCredits, newBalance)
			return -cost, AccountUpdate{
				Balance:               newBalance,
				AdditionalCredits:     &additional,
				RequireBalanceAtLeast: &cost,
			}, nil
		},
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			s.emit(ctx, Event{
				Type:      EventCreditsInsufficient,
				TenantID:  tenantID,
				Amount:    cost,
				Operation: operation,
			})
		}
		return nil, err
	}

	if !result.Duplicate {
		s.maybeEmitLowBalance(ctx, tenantID, result.NewBalance)
	}
	return result, nil
}

// GrantMonthlyCredits credits a plan's monthly allocation and records it as
// the account's allocation going forward. Used when a subscription becomes
// active or changes plans.
func (s *Service) GrantMonthlyCredits(ctx context.Context, tenantID uuid.UUID, allocation int64, source, idempotencyKey string, metadata map[string]any) (*Result, error) {
	if allocation <= 0 {
		return nil, ErrInvalidAmount
	}
	resetDate := nextResetDate(s.now().UTC())
	return s.apply(ctx, tenantID, idempotencyKey, metadata, mutationSpec{
		txType: TypeGrant,
		source: source,
		compute: func(account *Account) (int64, AccountUpdate, error) {
			return allocation, AccountUpdate{
				Balance:           account.Balance + allocation,
				MonthlyAllocation: &allocation,
				ResetDate:         &resetDate,
			}, nil
		},
	})
}

// ChangeMonthlyAllocation records a new monthly allocation for the tenant.
// Upgrades credit the difference immediately; downgrades leave the balance
// untouched and take effect at the next reset.
func (s *Service) ChangeMonthlyAllocation(ctx context.Context, tenantID uuid.UUID, allocation int64, source, idempotencyKey string, metadata map[string]any) (*Result, error) {
	if allocation < 0 {
		return nil, ErrInvalidAmount
	}
	return s.apply(ctx, tenantID, idempotencyKey, metadata, mutationSpec{
		txType: TypeGrant,
		source: source,
		compute: func(account *Account) (int64, AccountUpdate, error) {
			delta := allocation - account.MonthlyAllocation
			if delta < 0 {
				delta = 0
			}
			return delta, AccountUpdate{
				Balance:           account.Balance + delta,
				MonthlyAllocation: &allocation,
			}, nil
		},
	})
}

// RefundCredits returns previously consumed credits to the tenant. Refunded
// credits carry over like purchased ones.
func (s *Service) RefundCredits(ctx context.Context, tenantID uuid.UUID, amount int64, source, idempotencyKey string, metadata map[string]any) (*Result, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.apply(ctx, tenantID, idempotencyKey, metadata, mutationSpec{
		txType: TypeRefund,
		source: source,
		compute: func(account *Account) (int64, AccountUpdate, error) {
			additional := account.AdditionalCredits + amount
			return amount, AccountUpdate{
				Balance:           account.Balance + amount,
				AdditionalCredits: &additional,
			}, nil
		},
	})
}

// RevokeCredits zeroes the tenant's balance and allocation. Accounts are
// never deleted; full cancellation or expiry empties them instead.
func (s *Service) RevokeCredits(ctx context.Context, tenantID uuid.UUID, source, idempotencyKey string, metadata map[string]any) (*Result, error) {
	var zero int64
	return s.apply(ctx, tenantID, idempotencyKey, metadata, mutationSpec{
		txType: TypeConsumption,
		source: source,
		compute: func(account *Account) (int64, AccountUpdate, error) {
			return -account.Balance, AccountUpdate{
				Balance:           0,
				MonthlyAllocation: &zero,
				AdditionalCredits: &zero,
			}, nil
		},
	})
}

// ResetMonthlyCredits renews the tenant's balance to the monthly allocation
// plus the purchased carryover. Unspent monthly credits are forfeited; the
// reset date advances one month. Typically driven by a successful renewal
// payment.
func (s *Service) ResetMonthlyCredits(ctx context.Context, tenantID uuid.UUID, idempotencyKey string, metadata map[string]any) (*Result, error) {
	resetDate := nextResetDate(s.now().UTC())
	return s.apply(ctx, tenantID, idempotencyKey, metadata, mutationSpec{
		txType:    TypeGrant,
		operation: "monthly_reset",
		compute: func(account *Account) (int64, AccountUpdate, error) {
			newBalance := account.MonthlyAllocation + account.AdditionalCredits
			return newBalance - account.Balance, AccountUpdate{
				Balance:   newBalance,
				ResetDate: &resetDate,
			}, nil
		},
	})
}

// ListTransactions returns the tenant's audit log, newest first.
func (s *Service) ListTransactions(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenantID
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListTransactions(ctx, tenantID, limit, offset)
}

// Reconcile verifies the ledger invariant for a tenant: the account balance
// must equal the sum of all signed transaction amounts.
func (s *Service) Reconcile(ctx context.Context, tenantID uuid.UUID) error {
	account, err := s.store.GetAccount(ctx, tenantID)
	if err != nil {
		return err
	}
	sum, err := s.store.SumTransactionAmounts(ctx, tenantID)
	if err != nil {
		return err
	}
	if account.Balance != sum {
		return ErrBalanceMismatch
	}
	return nil
}

// apply runs the full mutation pipeline: idempotency short-circuit, bounded
// optimistic retry around one atomic attempt, then cache invalidation and
// event emission.
func (s *Service) apply(ctx context.Context, tenantID uuid.UUID, idempotencyKey string, metadata map[string]any, spec mutationSpec) (*Result, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenantID
	}
	if idempotencyKey == "" {
		return nil, ErrMissingIdempotencyKey
	}

	// Advisory pre-check; the transaction log's unique index is the
	// authoritative guarantee and is consulted next either way.
	if s.idem != nil {
		if processed, err := s.idem.WasProcessed(ctx, idempotencyKey); err != nil {
			s.log.WarnContext(ctx, "idempotency store check failed",
				slog.String("idempotency_key", idempotencyKey), slog.Any("error", err))
		} else if processed {
			if prior, err := s.priorResult(ctx, idempotencyKey); err == nil {
				return prior, nil
			}
		}
	}

	if prior, err := s.priorResult(ctx, idempotencyKey); err == nil {
		return prior, nil
	} else if !errors.Is(err, ErrTransactionNotFound) {
		return nil, err
	}

	var result *Result
	err := retry.Do(ctx, s.maxAttempts, s.backoff, isConflict, func(ctx context.Context) error {
		return s.store.WithinTransaction(ctx, func(ctx context.Context) error {
			account, err := s.getOrCreateAccount(ctx, tenantID)
			if err != nil {
				return err
			}

			delta, update, err := spec.compute(account)
			if err != nil {
				return err
			}

			matched, err := s.store.UpdateAccount(ctx, tenantID, account.Version, update)
			if err != nil {
				return err
			}
			if !matched {
				return ErrConcurrencyConflict
			}

			tx := &Transaction{
				ID:             uuid.NewString(),
				TenantID:       tenantID,
				IdempotencyKey: idempotencyKey,
				Type:           spec.txType,
				Amount:         delta,
				BalanceBefore:  account.Balance,
				BalanceAfter:   update.Balance,
				Source:         spec.source,
				Operation:      spec.operation,
				Metadata:       metadata,
				CreatedAt:      s.now().UTC(),
			}
			if err := s.store.InsertTransaction(ctx, tx); err != nil {
				return err
			}

			result = &Result{NewBalance: update.Balance, Transaction: tx}
			return nil
		})
	})
	if err != nil {
		// A concurrent request with the same key won the race; its result
		// is the result.
		if errors.Is(err, ErrDuplicateTransaction) {
			return s.priorResult(ctx, idempotencyKey)
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, tenantID)
	}
	if s.idem != nil {
		if err := s.idem.MarkProcessed(ctx, idempotencyKey, s.idemTTL); err != nil {
			s.log.WarnContext(ctx, "idempotency store mark failed",
				slog.String("idempotency_key", idempotencyKey), slog.Any("error", err))
		}
	}

	s.emit(ctx, Event{
		Type:      eventTypeFor(spec.txType),
		TenantID:  tenantID,
		Amount:    result.Transaction.Amount,
		Balance:   result.NewBalance,
		Operation: spec.operation,
	})

	return result, nil
}

// priorResult returns the originally recorded outcome for an idempotency key.
func (s *Service) priorResult(ctx context.Context, idempotencyKey string) (*Result, error) {
	tx, err := s.store.FindTransactionByKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return &Result{NewBalance: tx.BalanceAfter, Transaction: tx, Duplicate: true}, nil
}

func (s *Service) getOrCreateAccount(ctx context.Context, tenantID uuid.UUID) (*Account, error) {
	account, err := s.store.GetAccount(ctx, tenantID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	fresh := &Account{
		TenantID:  tenantID,
		Balance:   0,
		Version:   0,
		ResetDate: nextResetDate(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAccount(ctx, fresh); err != nil {
		// Lost the creation race; the other writer's account is fine.
		if errors.Is(err, ErrAccountExists) {
			return s.store.GetAccount(ctx, tenantID)
		}
		return nil, err
	}
	return fresh, nil
}

func (s *Service) maybeEmitLowBalance(ctx context.Context, tenantID uuid.UUID, balance int64) {
	account, err := s.store.GetAccount(ctx, tenantID)
	if err != nil || account.MonthlyAllocation <= 0 {
		return
	}
	threshold := int64(float64(account.MonthlyAllocation) * s.lowBalanceFraction)
	if balance < threshold {
		s.emit(ctx, Event{
			Type:     EventCreditsLowBalance,
			TenantID: tenantID,
			Balance:  balance,
		})
	}
}

func (s *Service) emit(ctx context.Context, event Event) {
	event.OccurredAt = s.now().UTC()
	s.emitter.Emit(ctx, event)
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

func eventTypeFor(txType TransactionType) string {
	if txType == TypeConsumption {
		return EventCreditsConsumed
	}
	return EventCreditsAdded
}

// nextResetDate returns the first instant of the month after now.
func nextResetDate(now time.Time) time.Time {
	year, month, _ := now.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
