package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/apperr"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

func validSubmitInput() SubmitListingInput {
	return SubmitListingInput{
		Title:       "iPhone 13 Pro",
		Description: "Tres bon etat, avec chargeur",
		Price:       250000,
		ImageURL:    "https://img.example.com/iphone.jpg",
		Location:    "Dakar",
		Category:    "electronics",
	}
}

func TestListingService_Submit_ForcesPendingAndExpiry(t *testing.T) {
	store := new(MockListingStore)
	notifier := &recordingNotifier{}
	svc := NewListingService(store, nil, nil, notifier)

	var captured *models.Listing
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.Listing")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*models.Listing)
			captured.ID = 42
		}).
		Return(&models.Listing{ID: 42, Status: models.ListingPending}, nil)

	before := time.Now().UTC()
	listing, err := svc.Submit(context.Background(), "owner-1", validSubmitInput())
	require.NoError(t, err)
	require.NotNil(t, listing)

	require.NotNil(t, captured)
	assert.Equal(t, models.ListingPending, captured.Status)
	assert.Equal(t, int64(0), captured.Views)
	assert.Equal(t, "owner-1", captured.OwnerID)
	expectedExpiry := before.Add(7 * 24 * time.Hour)
	assert.WithinDuration(t, expectedExpiry, captured.ExpiresAt, 5*time.Second)

	assert.Equal(t, []int64{42}, notifier.submitted)
	store.AssertExpectations(t)
}

func TestListingService_Submit_ValidationErrors(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	cases := []struct {
		name   string
		mutate func(*SubmitListingInput)
		field  string
	}{
		{"missing title", func(in *SubmitListingInput) { in.Title = "" }, "title"},
		{"missing description", func(in *SubmitListingInput) { in.Description = "" }, "description"},
		{"zero price", func(in *SubmitListingInput) { in.Price = 0 }, "price"},
		{"negative price", func(in *SubmitListingInput) { in.Price = -100 }, "price"},
		{"missing image", func(in *SubmitListingInput) { in.ImageURL = "" }, "image_url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validSubmitInput()
			tc.mutate(&in)

			_, err := svc.Submit(context.Background(), "owner-1", in)
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.Fields, tc.field)
		})
	}

	// Nothing reached the store.
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListingService_Get_NotFound(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	store.On("FindByID", mock.Anything, int64(7)).Return(nil, mongo.ErrNoDocuments)

	_, err := svc.Get(context.Background(), 7, "", "1.2.3.4")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListingService_Get_IncrementsViewForNewViewer(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	listing := &models.Listing{ID: 5, Status: models.ListingApproved, Views: 3, OwnerID: "owner-1"}
	store.On("FindByID", mock.Anything, int64(5)).Return(listing, nil)
	store.On("InsertView", mock.Anything, mock.MatchedBy(func(v models.ListingView) bool {
		return v.ListingID == 5 && v.ViewerKey == "viewer-9"
	})).Return(true, nil)
	store.On("IncrementViews", mock.Anything, int64(5)).Return(int64(4), nil)

	got, err := svc.Get(context.Background(), 5, "viewer-9", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Views)
	store.AssertExpectations(t)
}

func TestListingService_Get_RepeatViewerDoesNotIncrement(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	listing := &models.Listing{ID: 5, Status: models.ListingApproved, Views: 3}
	store.On("FindByID", mock.Anything, int64(5)).Return(listing, nil)
	store.On("InsertView", mock.Anything, mock.Anything).Return(false, nil)

	got, err := svc.Get(context.Background(), 5, "viewer-9", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Views)
	store.AssertNotCalled(t, "IncrementViews", mock.Anything, mock.Anything)
}

func TestListingService_Get_PendingListingNeverAccruesViews(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	listing := &models.Listing{ID: 5, Status: models.ListingPending}
	store.On("FindByID", mock.Anything, int64(5)).Return(listing, nil)

	_, err := svc.Get(context.Background(), 5, "viewer-9", "1.2.3.4")
	require.NoError(t, err)
	store.AssertNotCalled(t, "InsertView", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "IncrementViews", mock.Anything, mock.Anything)
}

func TestListingService_Get_AnonymousViewerFallsBackToAddress(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	listing := &models.Listing{ID: 5, Status: models.ListingApproved}
	store.On("FindByID", mock.Anything, int64(5)).Return(listing, nil)
	store.On("InsertView", mock.Anything, mock.MatchedBy(func(v models.ListingView) bool {
		return v.ViewerKey == "10.0.0.1" && v.ViewerID == ""
	})).Return(true, nil)
	store.On("IncrementViews", mock.Anything, int64(5)).Return(int64(1), nil)

	_, err := svc.Get(context.Background(), 5, "", "10.0.0.1")
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestListingService_Update_ForbiddenForStranger(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	listing := &models.Listing{ID: 5, OwnerID: "owner-1", Status: models.ListingApproved}
	store.On("FindByID", mock.Anything, int64(5)).Return(listing, nil)

	title := "New title"
	_, err := svc.Update(context.Background(), 5, "stranger", models.RoleUser, UpdateListingInput{Title: &title})
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))
	store.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything, mock.Anything)
}

func TestListingService_Update_OwnerEditOfApprovedTriggersRemoderation(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	listing := &models.Listing{ID: 5, OwnerID: "owner-1", Status: models.ListingApproved}
	store.On("FindByID", mock.Anything, int64(5)).Return(listing, nil)
	store.On("Patch", mock.Anything, int64(5), mock.MatchedBy(func(fields map[string]any) bool {
		status, ok := fields["status"]
		_, hasExpiry := fields["expires_at"]
		return ok && status == models.ListingPending && hasExpiry
	})).Return(&models.Listing{ID: 5, OwnerID: "owner-1", Status: models.ListingPending}, nil)

	price := int64(300000)
	updated, err := svc.Update(context.Background(), 5, "owner-1", models.RoleUser, UpdateListingInput{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, models.ListingPending, updated.Status)
	store.AssertExpectations(t)
}

func TestListingService_Update_ModeratorEditKeepsStatus(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	listing := &models.Listing{ID: 5, OwnerID: "owner-1", Status: models.ListingApproved}
	store.On("FindByID", mock.Anything, int64(5)).Return(listing, nil)
	store.On("Patch", mock.Anything, int64(5), mock.MatchedBy(func(fields map[string]any) bool {
		_, hasStatus := fields["status"]
		return !hasStatus
	})).Return(listing, nil)

	featured := true
	_, err := svc.Update(context.Background(), 5, "mod-1", models.RoleModerator, UpdateListingInput{IsFeatured: &featured})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestListingService_Update_ExplicitFalseIsApplied(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	listing := &models.Listing{ID: 5, OwnerID: "owner-1", Status: models.ListingPending, IsFeatured: true}
	store.On("FindByID", mock.Anything, int64(5)).Return(listing, nil)
	store.On("Patch", mock.Anything, int64(5), mock.MatchedBy(func(fields map[string]any) bool {
		v, ok := fields["is_featured"]
		return ok && v == false
	})).Return(listing, nil)

	featured := false
	_, err := svc.Update(context.Background(), 5, "owner-1", models.RoleUser, UpdateListingInput{IsFeatured: &featured})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestListingService_Moderate(t *testing.T) {
	store := new(MockListingStore)
	notifier := &recordingNotifier{}
	svc := NewListingService(store, nil, nil, notifier)

	approved := &models.Listing{ID: 5, OwnerID: "owner-1", Status: models.ListingApproved}
	store.On("SetStatus", mock.Anything, int64(5), models.ListingApproved).Return(approved, nil)

	got, err := svc.Approve(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.ListingApproved, got.Status)
	assert.Equal(t, []int64{5}, notifier.moderated)

	store.On("SetStatus", mock.Anything, int64(6), models.ListingRejected).Return(nil, mongo.ErrNoDocuments)
	_, err = svc.Reject(context.Background(), 6)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListingService_Search_ComputesTotalPages(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	store.On("Search", mock.Anything, mock.MatchedBy(func(f models.ListingFilter) bool {
		return f.Page == 1 && f.PageSize == 20 && f.Status != nil && *f.Status == models.ListingApproved
	})).Return([]models.Listing{{ID: 1}}, int64(41), nil)

	page, err := svc.ListPublic(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(41), page.Total)
	assert.Equal(t, int64(3), page.TotalPages)
}

func TestListingService_ListFeatured_ForcesFlags(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	store.On("Search", mock.Anything, mock.MatchedBy(func(f models.ListingFilter) bool {
		return f.Status != nil && *f.Status == models.ListingApproved &&
			f.IsFeatured != nil && *f.IsFeatured
	})).Return([]models.Listing{}, int64(0), nil)

	page, err := svc.ListFeatured(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	store.AssertExpectations(t)
}

func TestListingService_SweepExpired(t *testing.T) {
	store := new(MockListingStore)
	svc := NewListingService(store, nil, nil, nil)

	store.On("ExpireDue", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil).Once()
	count, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Second run with nothing due is a no-op.
	store.On("ExpireDue", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Once()
	count, err = svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
