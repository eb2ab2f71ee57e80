package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	accountsCollection     = "credit_accounts"
	transactionsCollection = "credit_transactions"
)

// accountDoc is the Mongo representation of Account. Tenant IDs are stored
// as canonical UUID strings so filters stay index-friendly and readable.
type accountDoc struct {
	TenantID          string    `bson:"tenant_id"`
	Balance           int64     `bson:"balance"`
	Version           int64     `bson:"version"`
	MonthlyAllocation int64     `bson:"monthly_allocation"`
	AdditionalCredits int64     `bson:"additional_credits"`
	ResetDate         time.Time `bson:"reset_date"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

type transactionDoc struct {
	ID             string         `bson:"_id"`
	TenantID       string         `bson:"tenant_id"`
	IdempotencyKey string         `bson:"idempotency_key"`
	Type           string         `bson:"type"`
	Amount         int64          `bson:"amount"`
	BalanceBefore  int64          `bson:"balance_before"`
	BalanceAfter   int64          `bson:"balance_after"`
	Source         string         `bson:"source,omitempty"`
	Operation      string         `bson:"operation,omitempty"`
	Metadata       map[string]any `bson:"metadata,omitempty"`
	CreatedAt      time.Time      `bson:"created_at"`
}

func newAccountDoc(a *Account) accountDoc {
	return accountDoc{
		TenantID:          a.TenantID.String(),
		Balance:           a.Balance,
		Version:           a.Version,
		MonthlyAllocation: a.MonthlyAllocation,
		AdditionalCredits: a.AdditionalCredits,
		ResetDate:         a.ResetDate,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func (d accountDoc) toAccount() (*Account, error) {
	tenantID, err := uuid.Parse(d.TenantID)
	if err != nil {
		return nil, fmt.Errorf("ledger: malformed tenant ID %q: %w", d.TenantID, err)
	}
	return &Account{
		TenantID:          tenantID,
		Balance:           d.Balance,
		Version:           d.Version,
		MonthlyAllocation: d.MonthlyAllocation,
		AdditionalCredits: d.AdditionalCredits,
		ResetDate:         d.ResetDate,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

func newTransactionDoc(tx *Transaction) transactionDoc {
	return transactionDoc{
		ID:             tx.ID,
		TenantID:       tx.TenantID.String(),
		IdempotencyKey: tx.IdempotencyKey,
		Type:           string(tx.Type),
		Amount:         tx.Amount,
		BalanceBefore:  tx.BalanceBefore,
		BalanceAfter:   tx.BalanceAfter,
		Source:         tx.Source,
		Operation:      tx.Operation,
		Metadata:       tx.Metadata,
		CreatedAt:      tx.CreatedAt,
	}
}

func (d transactionDoc) toTransaction() (*Transaction, error) {
	tenantID, err := uuid.Parse(d.TenantID)
	if err != nil {
		return nil, fmt.Errorf("ledger: malformed tenant ID %q: %w", d.TenantID, err)
	}
	return &Transaction{
		ID:             d.ID,
		TenantID:       tenantID,
		IdempotencyKey: d.IdempotencyKey,
		Type:           TransactionType(d.Type),
		Amount:         d.Amount,
		BalanceBefore:  d.BalanceBefore,
		BalanceAfter:   d.BalanceAfter,
		Source:         d.Source,
		Operation:      d.Operation,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
	}, nil
}

// MongoStore implements Store on MongoDB. Accounts live in credit_accounts
// (unique index on tenant_id), transactions in credit_transactions (unique
// index on idempotency_key, which is the durable exactly-once backstop).
type MongoStore struct {
	db           *mongo.Database
	accounts     *mongo.Collection
	transactions *mongo.Collection
}

// NewMongoStore creates a Mongo-backed ledger store.
// Panics if db is nil to fail fast during initialization.
func NewMongoStore(db *mongo.Database) *MongoStore {
	if db == nil {
		panic("ledger: mongo database is required")
	}
	return &MongoStore{
		db:           db,
		accounts:     db.Collection(accountsCollection),
		transactions: db.Collection(transactionsCollection),
	}
}

// EnsureIndexes creates the indexes the store's correctness depends on.
// Call once at startup; index creation is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

func (s *MongoStore) GetAccount(ctx context.Context, tenantID uuid.UUID) (*Account, error) {
	var doc accountDoc
	err := s.accounts.FindOne(ctx, bson.M{"tenant_id": tenantID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return doc.toAccount()
}

func (s *MongoStore) CreateAccount(ctx context.Context, account *Account) error {
	_, err := s.accounts.InsertOne(ctx, newAccountDoc(account))
	if mongo.IsDuplicateKeyError(err) {
		return ErrAccountExists
	}
	return err
}

func (s *MongoStore) UpdateAccount(ctx context.Context, tenantID uuid.UUID, version int64, update AccountUpdate) (bool, error) {
	filter := bson.M{
		"tenant_id": tenantID.String(),
		"version":   version,
	}
	if update.RequireBalanceAtLeast != nil {
		filter["balance"] = bson.M{"$gte": *update.RequireBalanceAtLeast}
	}

	set := bson.M{
		"balance":    update.Balance,
		"updated_at": time.Now().UTC(),
	}
	if update.MonthlyAllocation != nil {
		set["monthly_allocation"] = *update.MonthlyAllocation
	}
	if update.AdditionalCredits != nil {
		set["additional_credits"] = *update.AdditionalCredits
	}
	if update.ResetDate != nil {
		set["reset_date"] = *update.ResetDate
	}

	res, err := s.accounts.UpdateOne(ctx, filter, bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) InsertTransaction(ctx context.Context, tx *Transaction) error {
	_, err := s.transactions.InsertOne(ctx, newTransactionDoc(tx))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateTransaction
	}
	return err
}

func (s *MongoStore) FindTransactionByKey(ctx context.Context, idempotencyKey string) (*Transaction, error) {
	var doc transactionDoc
	err := s.transactions.FindOne(ctx, bson.M{"idempotency_key": idempotencyKey}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return doc.toTransaction()
}

func (s *MongoStore) ListTransactions(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Transaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.transactions.Find(ctx, bson.M{"tenant_id": tenantID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []transactionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	transactions := make([]Transaction, 0, len(docs))
	for _, doc := range docs {
		tx, err := doc.toTransaction()
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, nil
}

func (s *MongoStore) SumTransactionAmounts(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	cursor, err := s.transactions.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"tenant_id": tenantID.String()}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// WithinTransaction runs fn inside one multi-document transaction. When the
// context already carries a session (a nested call from an event handler),
// fn joins the ambient transaction instead of starting a new one.
func (s *MongoStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}
