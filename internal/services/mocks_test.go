package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

// --- Mocks ---

// MockListingStore mocks store.IListingStore.
type MockListingStore struct {
	mock.Mock
}

func (m *MockListingStore) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockListingStore) Create(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingStore) FindByID(ctx context.Context, id int64) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingStore) Search(ctx context.Context, f models.ListingFilter) ([]models.Listing, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Listing), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingStore) Patch(ctx context.Context, id int64, fields map[string]any) (*models.Listing, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockListingStore) SetStatus(ctx context.Context, id int64, status models.ListingStatus) (*models.Listing, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingStore) AddImage(ctx context.Context, id int64, imageKey string) error {
	args := m.Called(ctx, id, imageKey)
	return args.Error(0)
}

func (m *MockListingStore) InsertView(ctx context.Context, v models.ListingView) (bool, error) {
	args := m.Called(ctx, v)
	return args.Bool(0), args.Error(1)
}

func (m *MockListingStore) IncrementViews(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockListingStore) Stats(ctx context.Context, ownerID *string) (*models.ListingStats, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingStats), args.Error(1)
}

func (m *MockListingStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentStore mocks store.IPaymentStore.
type MockPaymentStore struct {
	mock.Mock
}

func (m *MockPaymentStore) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentStore) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentStore) MergeMetadata(ctx context.Context, reference string, metadata map[string]any) error {
	args := m.Called(ctx, reference, metadata)
	return args.Error(0)
}

func (m *MockPaymentStore) TransitionFromPending(ctx context.Context, reference string, to models.PaymentStatus, transactions []models.Transaction, metadata map[string]any) (*models.Payment, error) {
	args := m.Called(ctx, reference, to, transactions, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// recordingNotifier counts notification calls.
type recordingNotifier struct {
	submitted []int64
	moderated []int64
}

func (n *recordingNotifier) ListingSubmitted(_ context.Context, listing *models.Listing) {
	n.submitted = append(n.submitted, listing.ID)
}

func (n *recordingNotifier) ListingModerated(_ context.Context, listing *models.Listing) {
	n.moderated = append(n.moderated, listing.ID)
}
