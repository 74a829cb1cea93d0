// Package store provides the persistence layer for listings and payments.
// The lifecycle engines hold no state of their own; every guarantee around
// concurrent mutation is enforced here with conditional updates and unique
// indexes.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/db"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

const (
	listingsCollection     = "listings"
	listingViewsCollection = "listing_views"
	countersCollection     = "counters"
)

// IListingStore defines the persistence operations for listings and views.
type IListingStore interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, l *models.Listing) (*models.Listing, error)
	FindByID(ctx context.Context, id int64) (*models.Listing, error)
	Search(ctx context.Context, f models.ListingFilter) ([]models.Listing, int64, error)
	Patch(ctx context.Context, id int64, fields map[string]any) (*models.Listing, error)
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status models.ListingStatus) (*models.Listing, error)
	AddImage(ctx context.Context, id int64, imageKey string) error
	InsertView(ctx context.Context, v models.ListingView) (bool, error)
	IncrementViews(ctx context.Context, id int64) (int64, error)
	Stats(ctx context.Context, ownerID *string) (*models.ListingStats, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// listingStore implements IListingStore on MongoDB.
type listingStore struct {
	db *mongo.Database
}

// NewListingStore creates a new Mongo-backed listing store.
func NewListingStore(database *mongo.Database) IListingStore {
	return &listingStore{db: database}
}

// EnsureIndexes creates the indexes the store relies on. The unique compound
// index on (listing_id, viewer_key) is what makes view deduplication safe
// under concurrent requests.
func (s *listingStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(listingViewsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "viewer_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create listing_views dedup index: %w", err)
	}

	_, err = s.db.Collection(listingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "is_featured", Value: -1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	return nil
}

// nextSequence allocates the next integer listing ID from the counters
// collection.
func (s *listingStore) nextSequence(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence %s: %w", name, err)
	}
	return counter.Seq, nil
}

// Create inserts a new listing, assigning its store-generated ID.
func (s *listingStore) Create(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	id, err := s.nextSequence(ctx, listingsCollection)
	if err != nil {
		return nil, err
	}
	l.ID = id

	operation := func() error {
		_, insertErr := s.db.Collection(listingsCollection).InsertOne(ctx, l)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert listing %d for owner %s: %w", l.ID, l.OwnerID, err)
	}
	return l, nil
}

// FindByID finds a listing by its ID. Returns mongo.ErrNoDocuments if absent.
func (s *listingStore) FindByID(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding listing %d: %w", id, err)
	}
	return &listing, nil
}

func containsRegex(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

// buildFilter translates a ListingFilter into a Mongo query document.
func buildFilter(f models.ListingFilter) bson.M {
	filter := bson.M{}
	if f.Title != nil && *f.Title != "" {
		filter["title"] = containsRegex(*f.Title)
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		price := bson.M{}
		if f.PriceMin != nil {
			price["$gte"] = *f.PriceMin
		}
		if f.PriceMax != nil {
			price["$lte"] = *f.PriceMax
		}
		filter["price"] = price
	}
	if f.Location != nil && *f.Location != "" {
		filter["location"] = containsRegex(*f.Location)
	}
	if f.Category != nil && *f.Category != "" {
		filter["category"] = *f.Category
	}
	if f.Status != nil {
		filter["status"] = *f.Status
	}
	if f.IsFeatured != nil {
		filter["is_featured"] = *f.IsFeatured
	}
	if f.OwnerID != nil && *f.OwnerID != "" {
		filter["owner_id"] = *f.OwnerID
	}
	if f.Search != nil && *f.Search != "" {
		re := containsRegex(*f.Search)
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"location": re},
			bson.M{"category": re},
		}
	}
	return filter
}

// Search returns one page of listings matching the filter plus the total
// count. Featured listings always sort before non-featured regardless of age.
func (s *listingStore) Search(ctx context.Context, f models.ListingFilter) ([]models.Listing, int64, error) {
	collection := s.db.Collection(listingsCollection)
	filter := buildFilter(f)

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "is_featured", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64(page-1) * int64(pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute listing search query: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Listing
	if err = cursor.All(ctx, &results); err != nil {
		return nil, 0, fmt.Errorf("failed to decode listing search results: %w", err)
	}
	return results, total, nil
}

// Patch applies a partial update and returns the updated document.
// Returns mongo.ErrNoDocuments if the listing does not exist.
func (s *listingStore) Patch(ctx context.Context, id int64, fields map[string]any) (*models.Listing, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	for key, value := range fields {
		set[key] = value
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err := s.db.Collection(listingsCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to patch listing %d: %w", id, err)
	}
	return &updated, nil
}

// Delete removes a listing for good. There is no tombstone; view records are
// removed alongside so a re-used viewer key cannot collide later.
func (s *listingStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.Collection(listingsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("db error deleting listing %d: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	if _, err := s.db.Collection(listingViewsCollection).DeleteMany(ctx, bson.M{"listing_id": id}); err != nil {
		return fmt.Errorf("db error deleting view records for listing %d: %w", id, err)
	}
	return nil
}

// SetStatus unconditionally moves a listing to the given status and returns
// the updated document. Returns mongo.ErrNoDocuments if absent.
func (s *listingStore) SetStatus(ctx context.Context, id int64, status models.ListingStatus) (*models.Listing, error) {
	return s.Patch(ctx, id, map[string]any{"status": status})
}

// AddImage appends a processed image key to the listing's secondary images.
func (s *listingStore) AddImage(ctx context.Context, id int64, imageKey string) error {
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"extra_images": imageKey},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("db error adding image %s to listing %d: %w", imageKey, id, err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// InsertView records a view. It returns false when a record for the same
// (listing, viewer) pair already exists; the unique index makes the losing
// side of a concurrent race land here instead of double-counting.
func (s *listingStore) InsertView(ctx context.Context, v models.ListingView) (bool, error) {
	_, err := s.db.Collection(listingViewsCollection).InsertOne(ctx, v)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("db error recording view for listing %d: %w", v.ListingID, err)
	}
	return true, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (s *listingStore) IncrementViews(ctx context.Context, id int64) (int64, error) {
	var updated models.Listing
	err := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": int64(1)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, mongo.ErrNoDocuments
		}
		return 0, fmt.Errorf("db error incrementing views for listing %d: %w", id, err)
	}
	return updated.Views, nil
}

// Stats aggregates listing counts by status, scoped to one owner when
// ownerID is non-nil.
func (s *listingStore) Stats(ctx context.Context, ownerID *string) (*models.ListingStats, error) {
	collection := s.db.Collection(listingsCollection)

	match := bson.M{}
	if ownerID != nil && *ownerID != "" {
		match["owner_id"] = *ownerID
	}

	cursor, err := collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate listing stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.ListingStatus `bson:"_id"`
		N      int64                `bson:"n"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode listing stats: %w", err)
	}

	stats := &models.ListingStats{}
	for _, row := range rows {
		stats.Total += row.N
		switch row.Status {
		case models.ListingPending:
			stats.Pending = row.N
		case models.ListingApproved:
			stats.Approved = row.N
		case models.ListingRejected:
			stats.Rejected = row.N
		case models.ListingExpired:
			stats.Expired = row.N
		}
	}

	featuredMatch := bson.M{"is_featured": true}
	for k, v := range match {
		featuredMatch[k] = v
	}
	stats.Featured, err = collection.CountDocuments(ctx, featuredMatch)
	if err != nil {
		return nil, fmt.Errorf("failed to count featured listings: %w", err)
	}
	return stats, nil
}

// ExpireDue bulk-transitions every PENDING or APPROVED listing whose expiry
// has passed to EXPIRED, returning how many were changed. Re-running with no
// newly-expired listings modifies nothing.
func (s *listingStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.Collection(listingsCollection).UpdateMany(ctx,
		bson.M{
			"expires_at": bson.M{"$lte": now},
			"status":     bson.M{"$in": bson.A{models.ListingPending, models.ListingApproved}},
		},
		bson.M{"$set": bson.M{"status": models.ListingExpired, "updated_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("db error expiring listings: %w", err)
	}
	return result.ModifiedCount, nil
}
