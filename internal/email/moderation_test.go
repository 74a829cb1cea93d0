package email

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

func TestBuildModerationEmail(t *testing.T) {
	listing := &models.Listing{
		Title:     "iPhone 12",
		ExpiresAt: time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		status      models.ListingStatus
		wantSubject string
		wantInBody  string
	}{
		{models.ListingApproved, `Your listing "iPhone 12" has been approved`, "14 July 2025"},
		{models.ListingRejected, `Your listing "iPhone 12" has been rejected`, "submit it again"},
		{models.ListingPending, `Your listing "iPhone 12" is under review`, "A moderator will review it"},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			listing.Status = tc.status
			subject, raw := BuildModerationEmail("noreply@fotoloudiay.sn", "amina@example.sn", listing)

			assert.Equal(t, tc.wantSubject, subject)
			msg := string(raw)
			assert.True(t, strings.HasPrefix(msg, "From: noreply@fotoloudiay.sn\r\n"))
			assert.Contains(t, msg, "To: amina@example.sn\r\n")
			assert.Contains(t, msg, "Subject: "+subject+"\r\n")
			assert.Contains(t, msg, tc.wantInBody)
		})
	}
}
