package subscription

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
)

// Plan maps a payment-provider price to a monthly credit allocation.
// ID must equal the provider's price ID so webhook payloads resolve plans
// directly.
type Plan struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	MonthlyCredits int64  `yaml:"monthly_credits"`
	Public         bool   `yaml:"public"`
}

// Source loads the plan catalog.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// ValidatePlans ensures a catalog is internally consistent. Catches
// configuration errors at startup rather than during webhook processing.
func ValidatePlans(plans map[string]Plan) error {
	if len(plans) == 0 {
		return ErrNoPlansConfigured
	}
	for planID, plan := range plans {
		if plan.ID != planID {
			return errors.Join(ErrInvalidPlan,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", planID, plan.ID))
		}
		if plan.MonthlyCredits < 0 {
			return errors.Join(ErrInvalidPlan,
				fmt.Errorf("plan %s has negative monthly credits: %d", planID, plan.MonthlyCredits))
		}
	}
	return nil
}

type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory Source with a copy of the given plans.
// Panics if no plans are provided so a misconfigured service fails at startup.
func NewInMemSource(plans ...Plan) Source {
	if len(plans) == 0 {
		panic("subscription: at least one plan is required")
	}
	copied := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		copied[plan.ID] = plan
	}
	return &inMemSource{plans: copied}
}

func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.plans), nil
}
