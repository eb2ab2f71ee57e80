package ledger

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryTxKey struct{}

// MemoryStore is an in-process Store with the same conditional-update and
// unique-key semantics as the Mongo implementation. It backs the package
// tests and single-process development setups. WithinTransaction serializes
// transactions and rolls the store back when the transactional func fails,
// so a failed multi-write never leaves a partial state behind.
type MemoryStore struct {
	txMu         sync.Mutex
	mu           sync.Mutex
	accounts     map[uuid.UUID]*Account
	transactions []*Transaction
	byKey        map[string]*Transaction
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]*Account),
		byKey:    make(map[string]*Transaction),
	}
}

func cloneAccount(a *Account) *Account {
	copied := *a
	return &copied
}

func cloneTransaction(tx *Transaction) *Transaction {
	copied := *tx
	if tx.Metadata != nil {
		copied.Metadata = make(map[string]any, len(tx.Metadata))
		for k, v := range tx.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}

func (s *MemoryStore) GetAccount(ctx context.Context, tenantID uuid.UUID) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[tenantID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.TenantID]; ok {
		return ErrAccountExists
	}
	s.accounts[account.TenantID] = cloneAccount(account)
	return nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, tenantID uuid.UUID, version int64, update AccountUpdate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[tenantID]
	if !ok || account.Version != version {
		return false, nil
	}
	if update.RequireBalanceAtLeast != nil && account.Balance < *update.RequireBalanceAtLeast {
		return false, nil
	}

	account.Balance = update.Balance
	account.Version++
	account.UpdatedAt = time.Now().UTC()
	if update.MonthlyAllocation != nil {
		account.MonthlyAllocation = *update.MonthlyAllocation
	}
	if update.AdditionalCredits != nil {
		account.AdditionalCredits = *update.AdditionalCredits
	}
	if update.ResetDate != nil {
		account.ResetDate = *update.ResetDate
	}
	return true, nil
}

func (s *MemoryStore) InsertTransaction(ctx context.Context, tx *Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[tx.IdempotencyKey]; ok {
		return ErrDuplicateTransaction
	}

	copied := cloneTransaction(tx)
	s.transactions = append(s.transactions, copied)
	s.byKey[tx.IdempotencyKey] = copied
	return nil
}

func (s *MemoryStore) FindTransactionByKey(ctx context.Context, idempotencyKey string) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byKey[idempotencyKey]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*Transaction
	for _, tx := range s.transactions {
		if tx.TenantID == tenantID {
			matched = append(matched, tx)
		}
	}
	// Newest first, matching the Mongo sort.
	slices.Reverse(matched)

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	result := make([]Transaction, 0, len(matched))
	for _, tx := range matched {
		result = append(result, *cloneTransaction(tx))
	}
	return result, nil
}

func (s *MemoryStore) SumTransactionAmounts(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, tx := range s.transactions {
		if tx.TenantID == tenantID {
			total += tx.Amount
		}
	}
	return total, nil
}

type memorySnapshot struct {
	accounts     map[uuid.UUID]*Account
	transactions []*Transaction
	byKey        map[string]*Transaction
}

// snapshot copies the store state. Transactions are immutable after insert,
// so sharing their pointers with the live state is safe.
func (s *MemoryStore) snapshot() memorySnapshot {
	accounts := make(map[uuid.UUID]*Account, len(s.accounts))
	for tenantID, account := range s.accounts {
		accounts[tenantID] = cloneAccount(account)
	}
	byKey := make(map[string]*Transaction, len(s.byKey))
	for key, tx := range s.byKey {
		byKey[key] = tx
	}
	return memorySnapshot{
		accounts:     accounts,
		transactions: slices.Clone(s.transactions),
		byKey:        byKey,
	}
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.accounts = snap.accounts
	s.transactions = snap.transactions
	s.byKey = snap.byKey
}

func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, memoryTxKey{}, struct{}{}))
	if err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
	}
	return err
}
