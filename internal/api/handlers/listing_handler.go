package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/api/middleware"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/metrics"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/policy"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/services"
)

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService) *RestListingHandler {
	return &RestListingHandler{listingService: listingService}
}

type submitListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	IsFeatured  bool   `json:"is_featured"`
}

// SubmitListing handles POST /v1/listings.
func (h *RestListingHandler) SubmitListing(c *gin.Context) {
	var req submitListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ownerID, _ := middleware.CallerIdentity(c)
	listing, err := h.listingService.Submit(c.Request.Context(), ownerID, services.SubmitListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Location:    req.Location,
		Category:    req.Category,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": listing})
}

// GetListing handles GET /v1/listings/:id. Anonymous viewers dedup on client
// address, authenticated viewers on user ID.
func (h *RestListingHandler) GetListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	viewerID, _ := middleware.CallerIdentity(c)
	listing, err := h.listingService.Get(c.Request.Context(), id, viewerID, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing})
}

// parseFilter extracts the shared search filter from query parameters.
func parseFilter(c *gin.Context) models.ListingFilter {
	f := models.ListingFilter{}

	if v := c.Query("title"); v != "" {
		f.Title = &v
	}
	if v := c.Query("location"); v != "" {
		f.Location = &v
	}
	if v := c.Query("category"); v != "" {
		f.Category = &v
	}
	if v := c.Query("q"); v != "" {
		f.Search = &v
	}
	if v := c.Query("owner_id"); v != "" {
		f.OwnerID = &v
	}
	if v := c.Query("price_min"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.PriceMin = &n
		}
	}
	if v := c.Query("price_max"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.PriceMax = &n
		}
	}
	if v := c.Query("featured"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.IsFeatured = &b
		}
	}

	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return f
}

// SearchListings handles GET /v1/listings (public, APPROVED only).
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	page, err := h.listingService.ListPublic(c.Request.Context(), parseFilter(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page})
}

// FeaturedListings handles GET /v1/listings/featured.
func (h *RestListingHandler) FeaturedListings(c *gin.Context) {
	page, err := h.listingService.ListFeatured(c.Request.Context(), parseFilter(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page})
}

// MyListings handles GET /v1/me/listings: the caller's own listings in any
// status.
func (h *RestListingHandler) MyListings(c *gin.Context) {
	callerID, _ := middleware.CallerIdentity(c)
	f := parseFilter(c)
	f.OwnerID = &callerID
	if v := c.Query("status"); v != "" {
		status := models.ListingStatus(v)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing status"})
			return
		}
		f.Status = &status
	}

	page, err := h.listingService.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page})
}

// ModerationQueue handles GET /v1/moderation/listings: any status, any owner.
// Defaults to the PENDING queue.
func (h *RestListingHandler) ModerationQueue(c *gin.Context) {
	f := parseFilter(c)
	status := models.ListingStatus(c.DefaultQuery("status", string(models.ListingPending)))
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing status"})
		return
	}
	f.Status = &status

	page, err := h.listingService.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page})
}

type updateListingRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	ImageURL    *string `json:"image_url"`
	Location    *string `json:"location"`
	Category    *string `json:"category"`
	IsFeatured  *bool   `json:"is_featured"`
}

// UpdateListing handles PATCH /v1/listings/:id.
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}
	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	callerID, callerRole := middleware.CallerIdentity(c)
	listing, err := h.listingService.Update(c.Request.Context(), id, callerID, callerRole, services.UpdateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Location:    req.Location,
		Category:    req.Category,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing})
}

// DeleteListing handles DELETE /v1/listings/:id.
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	callerID, callerRole := middleware.CallerIdentity(c)
	if err := h.listingService.Delete(c.Request.Context(), id, callerID, callerRole); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ApproveListing handles POST /v1/moderation/listings/:id/approve.
func (h *RestListingHandler) ApproveListing(c *gin.Context) {
	h.moderate(c, models.ListingApproved)
}

// RejectListing handles POST /v1/moderation/listings/:id/reject.
func (h *RestListingHandler) RejectListing(c *gin.Context) {
	h.moderate(c, models.ListingRejected)
}

func (h *RestListingHandler) moderate(c *gin.Context, decision models.ListingStatus) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	var listing *models.Listing
	if decision == models.ListingApproved {
		listing, err = h.listingService.Approve(c.Request.Context(), id)
	} else {
		listing, err = h.listingService.Reject(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.ListingsModerated.WithLabelValues(string(decision)).Inc()
	c.JSON(http.StatusOK, gin.H{"data": listing})
}

// ListingStats handles GET /v1/listings/stats. Moderators get the global
// picture; everyone else gets their own counts.
func (h *RestListingHandler) ListingStats(c *gin.Context) {
	callerID, callerRole := middleware.CallerIdentity(c)

	var ownerID *string
	if !policy.CanModerate(callerRole) {
		ownerID = &callerID
	} else if v := c.Query("owner_id"); v != "" {
		ownerID = &v
	}

	stats, err := h.listingService.Statistics(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
