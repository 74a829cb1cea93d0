package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/apperr"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/cache"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/config"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/metrics"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/policy"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/store"
)

// listingTTL is how long a listing stays live before the sweep expires it.
// Owner edits of an approved listing restart the clock alongside re-moderation.
const listingTTL = 7 * 24 * time.Hour

// viewDedupTTL bounds the Redis pre-check keys. The Mongo unique index is
// the authority; Redis only short-circuits the common repeat-view case.
const viewDedupTTL = 24 * time.Hour

// ModerationNotifier receives lifecycle events that trigger outbound
// notifications. Implementations must not block; failures are theirs to log.
type ModerationNotifier interface {
	ListingSubmitted(ctx context.Context, listing *models.Listing)
	ListingModerated(ctx context.Context, listing *models.Listing)
}

// SubmitListingInput carries the owner-supplied fields for a new listing.
// Status and expiry are never caller-controlled.
type SubmitListingInput struct {
	Title       string
	Description string
	Price       int64
	ImageURL    string
	Location    string
	Category    string
	IsFeatured  bool
}

// UpdateListingInput carries a partial patch. Nil fields are left untouched;
// explicit zero values (false, 0) are applied.
type UpdateListingInput struct {
	Title       *string
	Description *string
	Price       *int64
	ImageURL    *string
	Location    *string
	Category    *string
	IsFeatured  *bool
}

// IListingService defines the listing lifecycle operations.
type IListingService interface {
	Submit(ctx context.Context, ownerID string, in SubmitListingInput) (*models.Listing, error)
	Get(ctx context.Context, id int64, viewerID, viewerAddr string) (*models.Listing, error)
	List(ctx context.Context, f models.ListingFilter) (*models.ListingPage, error)
	ListPublic(ctx context.Context, f models.ListingFilter) (*models.ListingPage, error)
	ListFeatured(ctx context.Context, f models.ListingFilter) (*models.ListingPage, error)
	Update(ctx context.Context, id int64, callerID, callerRole string, in UpdateListingInput) (*models.Listing, error)
	Delete(ctx context.Context, id int64, callerID, callerRole string) error
	Approve(ctx context.Context, id int64) (*models.Listing, error)
	Reject(ctx context.Context, id int64) (*models.Listing, error)
	Statistics(ctx context.Context, ownerID *string) (*models.ListingStats, error)
	AttachImage(ctx context.Context, id int64, imageKey string) error
	SweepExpired(ctx context.Context) (int64, error)
}

// listingService implements IListingService.
type listingService struct {
	store    store.IListingStore
	rdb      *redis.Client // optional; nil disables the view pre-check and stats cache
	cfg      *config.Config
	notifier ModerationNotifier // optional
}

// NewListingService creates a new ListingService.
func NewListingService(listingStore store.IListingStore, rdb *redis.Client, cfg *config.Config, notifier ModerationNotifier) IListingService {
	return &listingService{store: listingStore, rdb: rdb, cfg: cfg, notifier: notifier}
}

func validateSubmit(in SubmitListingInput) map[string]string {
	fields := map[string]string{}
	if in.Title == "" {
		fields["title"] = "title is required"
	}
	if in.Description == "" {
		fields["description"] = "description is required"
	}
	if in.Price <= 0 {
		fields["price"] = "price must be a positive amount"
	}
	if in.ImageURL == "" {
		fields["image_url"] = "at least one image is required"
	}
	return fields
}

// Submit creates a new listing in PENDING state, ignoring any caller-supplied
// status. Expiry is set to now + 7 days.
func (s *listingService) Submit(ctx context.Context, ownerID string, in SubmitListingInput) (*models.Listing, error) {
	if ownerID == "" {
		return nil, apperr.Validation("owner is required", nil)
	}
	if fields := validateSubmit(in); len(fields) > 0 {
		return nil, apperr.Validation("invalid listing submission", fields)
	}

	now := time.Now().UTC()
	listing := &models.Listing{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		Location:    in.Location,
		Category:    in.Category,
		IsFeatured:  in.IsFeatured,
		Status:      models.ListingPending,
		Views:       0,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(listingTTL),
	}

	created, err := s.store.Create(ctx, listing)
	if err != nil {
		return nil, apperr.Storage("listing creation", err)
	}

	s.invalidateStats(ctx, ownerID)
	if s.notifier != nil {
		s.notifier.ListingSubmitted(ctx, created)
	}
	return created, nil
}

// Get fetches a listing. When the listing is APPROVED and a viewer is
// identifiable, it records at most one view per (listing, viewer) pair and
// increments the counter for the winner of the dedup race.
func (s *listingService) Get(ctx context.Context, id int64, viewerID, viewerAddr string) (*models.Listing, error) {
	listing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing")
		}
		return nil, apperr.Storage("listing lookup", err)
	}

	if listing.Status != models.ListingApproved {
		return listing, nil
	}

	viewerKey := viewerID
	if viewerKey == "" {
		viewerKey = viewerAddr
	}
	if viewerKey == "" {
		return listing, nil
	}

	if !s.markViewedOnce(ctx, id, viewerKey) {
		return listing, nil
	}

	created, err := s.store.InsertView(ctx, models.ListingView{
		ListingID:  id,
		ViewerKey:  viewerKey,
		ViewerID:   viewerID,
		ViewerAddr: viewerAddr,
		ViewedAt:   time.Now().UTC(),
	})
	if err != nil {
		// A failed view record never fails the fetch.
		log.Printf("failed to record view for listing %d: %v", id, err)
		return listing, nil
	}
	if !created {
		return listing, nil
	}

	views, err := s.store.IncrementViews(ctx, id)
	if err != nil {
		log.Printf("CRITICAL: view record inserted but counter increment failed for listing %d: %v", id, err)
		return listing, nil
	}
	metrics.ListingViews.Inc()
	listing.Views = views
	return listing, nil
}

// markViewedOnce is the Redis pre-check. Returns true when this viewer has
// not been seen recently (or Redis is unavailable, in which case the unique
// index downstream still dedups correctly).
func (s *listingService) markViewedOnce(ctx context.Context, id int64, viewerKey string) bool {
	if s.rdb == nil {
		return true
	}
	key := fmt.Sprintf("listing:viewed:%d:%s", id, viewerKey)
	set, err := s.rdb.SetNX(ctx, key, 1, viewDedupTTL).Result()
	if err != nil {
		log.Printf("redis view pre-check failed for listing %d: %v", id, err)
		return true
	}
	return set
}

// List searches listings with the caller's filter as-is.
func (s *listingService) List(ctx context.Context, f models.ListingFilter) (*models.ListingPage, error) {
	return s.search(ctx, f)
}

// ListPublic searches with status forced to APPROVED.
func (s *listingService) ListPublic(ctx context.Context, f models.ListingFilter) (*models.ListingPage, error) {
	approved := models.ListingApproved
	f.Status = &approved
	return s.search(ctx, f)
}

// ListFeatured searches with status forced to APPROVED and isFeatured true.
func (s *listingService) ListFeatured(ctx context.Context, f models.ListingFilter) (*models.ListingPage, error) {
	approved := models.ListingApproved
	featured := true
	f.Status = &approved
	f.IsFeatured = &featured
	return s.search(ctx, f)
}

func (s *listingService) search(ctx context.Context, f models.ListingFilter) (*models.ListingPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	items, total, err := s.store.Search(ctx, f)
	if err != nil {
		return nil, apperr.Storage("listing search", err)
	}
	if items == nil {
		items = []models.Listing{}
	}
	totalPages := total / int64(f.PageSize)
	if total%int64(f.PageSize) != 0 {
		totalPages++
	}
	return &models.ListingPage{
		Items:      items,
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Update patches the supplied fields. Owners editing their own APPROVED
// listing send it back through moderation: status returns to PENDING and the
// expiry clock restarts. Moderator edits leave status untouched.
func (s *listingService) Update(ctx context.Context, id int64, callerID, callerRole string, in UpdateListingInput) (*models.Listing, error) {
	listing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing")
		}
		return nil, apperr.Storage("listing lookup", err)
	}
	if !policy.CanManageListing(callerID, callerRole, listing.OwnerID) {
		return nil, apperr.Forbidden("you cannot modify this listing")
	}

	fields := map[string]any{}
	validation := map[string]string{}
	if in.Title != nil {
		if *in.Title == "" {
			validation["title"] = "title cannot be empty"
		}
		fields["title"] = *in.Title
	}
	if in.Description != nil {
		if *in.Description == "" {
			validation["description"] = "description cannot be empty"
		}
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			validation["price"] = "price must be a positive amount"
		}
		fields["price"] = *in.Price
	}
	if in.ImageURL != nil {
		if *in.ImageURL == "" {
			validation["image_url"] = "image cannot be removed"
		}
		fields["image_url"] = *in.ImageURL
	}
	if in.Location != nil {
		fields["location"] = *in.Location
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.IsFeatured != nil {
		fields["is_featured"] = *in.IsFeatured
	}
	if len(validation) > 0 {
		return nil, apperr.Validation("invalid listing update", validation)
	}
	if len(fields) == 0 {
		return nil, apperr.Validation("no fields provided for update", nil)
	}

	if policy.IsOwner(callerID, listing.OwnerID) && listing.Status == models.ListingApproved {
		fields["status"] = models.ListingPending
		fields["expires_at"] = time.Now().UTC().Add(listingTTL)
	}

	updated, err := s.store.Patch(ctx, id, fields)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing")
		}
		return nil, apperr.Storage("listing update", err)
	}

	s.invalidateStats(ctx, updated.OwnerID)
	return updated, nil
}

// Delete hard-deletes a listing. Same permission rule as Update.
func (s *listingService) Delete(ctx context.Context, id int64, callerID, callerRole string) error {
	listing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("listing")
		}
		return apperr.Storage("listing lookup", err)
	}
	if !policy.CanManageListing(callerID, callerRole, listing.OwnerID) {
		return apperr.Forbidden("you cannot delete this listing")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("listing")
		}
		return apperr.Storage("listing deletion", err)
	}
	s.invalidateStats(ctx, listing.OwnerID)
	return nil
}

// Approve moves a listing to APPROVED. Role enforcement lives at the API
// boundary; the engine transitions unconditionally.
func (s *listingService) Approve(ctx context.Context, id int64) (*models.Listing, error) {
	return s.moderate(ctx, id, models.ListingApproved)
}

// Reject moves a listing to REJECTED.
func (s *listingService) Reject(ctx context.Context, id int64) (*models.Listing, error) {
	return s.moderate(ctx, id, models.ListingRejected)
}

func (s *listingService) moderate(ctx context.Context, id int64, status models.ListingStatus) (*models.Listing, error) {
	updated, err := s.store.SetStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing")
		}
		return nil, apperr.Storage("listing moderation", err)
	}
	s.invalidateStats(ctx, updated.OwnerID)
	if s.notifier != nil {
		s.notifier.ListingModerated(ctx, updated)
	}
	return updated, nil
}

// Statistics returns listing counts, globally or for one owner. Results are
// briefly cached in Redis since the moderation dashboard polls them.
func (s *listingService) Statistics(ctx context.Context, ownerID *string) (*models.ListingStats, error) {
	cacheKey := "listing:stats:global"
	if ownerID != nil && *ownerID != "" {
		cacheKey = "listing:stats:owner:" + *ownerID
	}

	if s.rdb != nil {
		var cached models.ListingStats
		if hit, err := cache.GetJSON(ctx, s.rdb, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	stats, err := s.store.Stats(ctx, ownerID)
	if err != nil {
		return nil, apperr.Storage("listing statistics", err)
	}

	if s.rdb != nil && s.cfg != nil && s.cfg.StatsCacheTTL > 0 {
		if err := cache.SetJSON(ctx, s.rdb, cacheKey, stats, s.cfg.StatsCacheTTL); err != nil {
			log.Printf("failed to cache listing stats (%s): %v", cacheKey, err)
		}
	}
	return stats, nil
}

// invalidateStats drops the cached statistics after a mutation so dashboards
// do not serve stale counts for the full TTL.
func (s *listingService) invalidateStats(ctx context.Context, ownerID string) {
	if s.rdb == nil {
		return
	}
	keys := []string{"listing:stats:global"}
	if ownerID != "" {
		keys = append(keys, "listing:stats:owner:"+ownerID)
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("failed to invalidate listing stats cache: %v", err)
	}
}

// AttachImage appends a processed secondary image key to a listing. Called by
// the background image worker, not by request handlers.
func (s *listingService) AttachImage(ctx context.Context, id int64, imageKey string) error {
	if err := s.store.AddImage(ctx, id, imageKey); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("listing")
		}
		return apperr.Storage("listing image attach", err)
	}
	return nil
}

// SweepExpired transitions every overdue PENDING/APPROVED listing to EXPIRED
// and returns the number changed. Safe to re-run at any cadence.
func (s *listingService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.store.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, apperr.Storage("listing expiry sweep", err)
	}
	if count > 0 {
		log.Printf("listing sweep expired %d listing(s)", count)
		s.invalidateStats(ctx, "")
	}
	return count, nil
}
