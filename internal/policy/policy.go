// Package policy holds the role and ownership checks shared by the listing
// and payment lifecycle engines.
package policy

import "github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"

// CanModerate reports whether the role may approve/reject listings and act
// on listings it does not own.
func CanModerate(role string) bool {
	return role == models.RoleModerator || role == models.RoleAdmin
}

// CanManageListing reports whether the caller may update or delete a listing:
// the owner always can, moderators and admins can for any listing.
func CanManageListing(callerID, callerRole, ownerID string) bool {
	if callerID != "" && callerID == ownerID {
		return true
	}
	return CanModerate(callerRole)
}

// IsOwner reports whether the caller is the listing owner. Used to decide
// whether an edit triggers re-moderation (moderator edits do not).
func IsOwner(callerID, ownerID string) bool {
	return callerID != "" && callerID == ownerID
}

// CanPurchase reports whether the buyer may initiate a payment against a
// listing owned by ownerID. Self-purchase is disallowed.
func CanPurchase(buyerID, ownerID string) bool {
	return buyerID != "" && buyerID != ownerID
}
