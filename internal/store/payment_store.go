package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

const paymentsCollection = "payments"

// ErrNotPending is returned when a conditional transition targeted a payment
// that is no longer in the PENDING state. Callers inspect the current document
// to decide whether the miss is an idempotent replay or a real conflict.
var ErrNotPending = errors.New("payment is not pending")

// IPaymentStore defines the persistence operations for payments.
type IPaymentStore interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, p *models.Payment) error
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	MergeMetadata(ctx context.Context, reference string, metadata map[string]any) error
	TransitionFromPending(ctx context.Context, reference string, to models.PaymentStatus, transactions []models.Transaction, metadata map[string]any) (*models.Payment, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// paymentStore implements IPaymentStore on MongoDB.
type paymentStore struct {
	db *mongo.Database
}

// NewPaymentStore creates a new Mongo-backed payment store.
func NewPaymentStore(database *mongo.Database) IPaymentStore {
	return &paymentStore{db: database}
}

// EnsureIndexes creates the indexes the store relies on.
func (s *paymentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(paymentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}
	return nil
}

// Create inserts a new payment document.
func (s *paymentStore) Create(ctx context.Context, p *models.Payment) error {
	_, err := s.db.Collection(paymentsCollection).InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to insert payment %s: %w", p.Reference, err)
	}
	return nil
}

// FindByReference finds a payment by its reference. Returns
// mongo.ErrNoDocuments if absent.
func (s *paymentStore) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Collection(paymentsCollection).FindOne(ctx, bson.M{"reference": reference}).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding payment %s: %w", reference, err)
	}
	return &payment, nil
}

// MergeMetadata merges keys into the payment's metadata without touching the
// rest of the document.
func (s *paymentStore) MergeMetadata(ctx context.Context, reference string, metadata map[string]any) error {
	if len(metadata) == 0 {
		return nil
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	for key, value := range metadata {
		set["metadata."+key] = value
	}
	result, err := s.db.Collection(paymentsCollection).UpdateOne(ctx,
		bson.M{"reference": reference},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("db error merging metadata for payment %s: %w", reference, err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// TransitionFromPending atomically moves a payment out of PENDING, appending
// the given transactions in the same write. The status guard in the filter
// means exactly one caller wins a concurrent confirm/cancel/expire race; the
// losers get ErrNotPending. Returns mongo.ErrNoDocuments when no payment with
// the reference exists at all.
func (s *paymentStore) TransitionFromPending(ctx context.Context, reference string, to models.PaymentStatus, transactions []models.Transaction, metadata map[string]any) (*models.Payment, error) {
	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	for key, value := range metadata {
		set["metadata."+key] = value
	}
	update := bson.M{"$set": set}
	if len(transactions) > 0 {
		update["$push"] = bson.M{"transactions": bson.M{"$each": transactions}}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Payment
	err := s.db.Collection(paymentsCollection).FindOneAndUpdate(ctx,
		bson.M{"reference": reference, "status": models.PaymentPending},
		update, opts,
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("db error transitioning payment %s to %s: %w", reference, to, err)
	}

	// The guard missed. Distinguish "no such payment" from "already settled".
	count, countErr := s.db.Collection(paymentsCollection).CountDocuments(ctx, bson.M{"reference": reference})
	if countErr != nil {
		return nil, fmt.Errorf("db error diagnosing failed transition for payment %s: %w", reference, countErr)
	}
	if count == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return nil, ErrNotPending
}

// ExpireDue moves every PENDING payment past its deadline to EXPIRED,
// returning how many were changed. Expired payments keep their transaction
// history untouched; there is nothing to refund since no money moved.
func (s *paymentStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.Collection(paymentsCollection).UpdateMany(ctx,
		bson.M{
			"status":     models.PaymentPending,
			"expires_at": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{"status": models.PaymentExpired, "updated_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("db error expiring payments: %w", err)
	}
	return result.ModifiedCount, nil
}
