package subscription

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

const subscriptionsCollection = "subscriptions"

type subscriptionDoc struct {
	TenantID         string     `bson:"tenant_id"`
	PlanID           string     `bson:"plan_id"`
	Status           string     `bson:"status"`
	ProviderSubID    string     `bson:"provider_sub_id,omitempty"`
	CurrentPeriodEnd *time.Time `bson:"current_period_end,omitempty"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
	CancelledAt      *time.Time `bson:"cancelled_at,omitempty"`
}

func (d subscriptionDoc) toSubscription() (*Subscription, error) {
	tenantID, err := uuid.Parse(d.TenantID)
	if err != nil {
		return nil, fmt.Errorf("subscription: malformed tenant ID %q: %w", d.TenantID, err)
	}
	return &Subscription{
		TenantID:         tenantID,
		PlanID:           d.PlanID,
		Status:           Status(d.Status),
		ProviderSubID:    d.ProviderSubID,
		CurrentPeriodEnd: d.CurrentPeriodEnd,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		CancelledAt:      d.CancelledAt,
	}, nil
}

// MongoStore implements Store on MongoDB with one document per tenant.
// Operations run against the session in the context when present, so saves
// join the ledger's multi-document transactions.
type MongoStore struct {
	subscriptions *mongo.Collection
}

// NewMongoStore creates a Mongo-backed subscription store.
// Panics if db is nil to fail fast during initialization.
func NewMongoStore(db *mongo.Database) *MongoStore {
	if db == nil {
		panic("subscription: mongo database is required")
	}
	return &MongoStore{subscriptions: db.Collection(subscriptionsCollection)}
}

// EnsureIndexes creates the unique tenant index. Idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.subscriptions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenantID
	}

	var doc subscriptionDoc
	err := s.subscriptions.FindOne(ctx, bson.M{"tenant_id": tenantID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toSubscription()
}

func (s *MongoStore) Save(ctx context.Context, subscription *Subscription) error {
	if subscription == nil || subscription.TenantID == uuid.Nil {
		return ErrMissingTenantID
	}

	doc := subscriptionDoc{
		TenantID:         subscription.TenantID.String(),
		PlanID:           subscription.PlanID,
		Status:           string(subscription.Status),
		ProviderSubID:    subscription.ProviderSubID,
		CurrentPeriodEnd: subscription.CurrentPeriodEnd,
		CreatedAt:        subscription.CreatedAt,
		UpdatedAt:        subscription.UpdatedAt,
		CancelledAt:      subscription.CancelledAt,
	}

	_, err := s.subscriptions.ReplaceOne(ctx,
		bson.M{"tenant_id": doc.TenantID},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}
