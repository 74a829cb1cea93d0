package email

import (
	"fmt"
	"strings"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

// BuildModerationEmail renders the notification sent to a listing owner when
// their listing enters or leaves moderation. Returns the subject and the raw
// RFC 5322 message.
func BuildModerationEmail(from, to string, listing *models.Listing) (string, []byte) {
	var subject, body string
	switch listing.Status {
	case models.ListingApproved:
		subject = fmt.Sprintf("Your listing %q has been approved", listing.Title)
		body = fmt.Sprintf(
			"Good news! Your listing %q is now live and visible to buyers.\n\nIt will stay online until %s.",
			listing.Title, listing.ExpiresAt.Format("2 January 2006"))
	case models.ListingRejected:
		subject = fmt.Sprintf("Your listing %q has been rejected", listing.Title)
		body = fmt.Sprintf(
			"Unfortunately your listing %q did not pass moderation.\n\nYou can edit it and submit it again for review.",
			listing.Title)
	default:
		subject = fmt.Sprintf("Your listing %q is under review", listing.Title)
		body = fmt.Sprintf(
			"We received your listing %q. A moderator will review it shortly; you will be notified of the decision.",
			listing.Title)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	return subject, []byte(msg.String())
}
