package models

import "time"

// ListingStatus is the moderation/lifecycle state of a listing.
type ListingStatus string

const (
	ListingPending  ListingStatus = "PENDING"
	ListingApproved ListingStatus = "APPROVED"
	ListingRejected ListingStatus = "REJECTED"
	ListingExpired  ListingStatus = "EXPIRED"
)

// Valid reports whether s is one of the closed set of listing statuses.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingPending, ListingApproved, ListingRejected, ListingExpired:
		return true
	}
	return false
}

// Listing represents a seller's product submission.
// Prices are whole CFA francs (XOF has no minor unit).
type Listing struct {
	ID          int64         `bson:"_id" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Price       int64         `bson:"price" json:"price"`
	ImageURL    string        `bson:"image_url" json:"image_url"`
	ExtraImages []string      `bson:"extra_images,omitempty" json:"extra_images,omitempty"` // S3 keys
	Location    string        `bson:"location,omitempty" json:"location,omitempty"`
	Category    string        `bson:"category,omitempty" json:"category,omitempty"`
	IsFeatured  bool          `bson:"is_featured" json:"is_featured"`
	Status      ListingStatus `bson:"status" json:"status"`
	Views       int64         `bson:"views" json:"views"`
	OwnerID     string        `bson:"owner_id" json:"owner_id"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updated_at"`
	ExpiresAt   time.Time     `bson:"expires_at" json:"expires_at"`
}

// ListingView records a deduplicated view of an approved listing.
// ViewerKey is the viewer identity when known, otherwise the network address.
type ListingView struct {
	ListingID  int64     `bson:"listing_id" json:"listing_id"`
	ViewerKey  string    `bson:"viewer_key" json:"viewer_key"`
	ViewerID   string    `bson:"viewer_id,omitempty" json:"viewer_id,omitempty"`
	ViewerAddr string    `bson:"viewer_addr,omitempty" json:"viewer_addr,omitempty"`
	ViewedAt   time.Time `bson:"viewed_at" json:"viewed_at"`
}

// ListingStats aggregates listing counts, either globally or per owner.
type ListingStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Expired  int64 `json:"expired"`
	Featured int64 `json:"featured"`
}

// ListingFilter carries the search criteria for listing queries.
// Nil pointer fields are not applied.
type ListingFilter struct {
	Title      *string
	PriceMin   *int64
	PriceMax   *int64
	Location   *string
	Category   *string
	Status     *ListingStatus
	IsFeatured *bool
	OwnerID    *string
	Search     *string // OR across title/description/location/category
	Page       int     // 1-based
	PageSize   int
}

// ListingPage is one page of listing search results.
type ListingPage struct {
	Items      []Listing `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int64     `json:"total_pages"`
}
