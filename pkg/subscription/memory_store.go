package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and single-process setups.
type MemoryStore struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]Subscription
}

// NewMemoryStore creates an empty in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subscriptions: make(map[uuid.UUID]Subscription)}
}

func (s *MemoryStore) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenantID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	subscription, ok := s.subscriptions[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := subscription
	return &copied, nil
}

func (s *MemoryStore) Save(ctx context.Context, subscription *Subscription) error {
	if subscription == nil || subscription.TenantID == uuid.Nil {
		return ErrMissingTenantID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[subscription.TenantID] = *subscription
	return nil
}
