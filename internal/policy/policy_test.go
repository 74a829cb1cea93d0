package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

func TestCanModerate(t *testing.T) {
	assert.True(t, CanModerate(models.RoleModerator))
	assert.True(t, CanModerate(models.RoleAdmin))
	assert.False(t, CanModerate(models.RoleUser))
	assert.False(t, CanModerate(""))
}

func TestCanManageListing(t *testing.T) {
	cases := []struct {
		name                          string
		callerID, callerRole, ownerID string
		want                          bool
	}{
		{"owner", "user-1", models.RoleUser, "user-1", true},
		{"stranger", "user-2", models.RoleUser, "user-1", false},
		{"moderator on foreign listing", "mod-1", models.RoleModerator, "user-1", true},
		{"admin on foreign listing", "admin-1", models.RoleAdmin, "user-1", true},
		{"anonymous", "", "", "user-1", false},
		{"anonymous owner id never matches empty caller", "", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanManageListing(tc.callerID, tc.callerRole, tc.ownerID))
		})
	}
}

func TestIsOwner(t *testing.T) {
	assert.True(t, IsOwner("user-1", "user-1"))
	assert.False(t, IsOwner("user-2", "user-1"))
	assert.False(t, IsOwner("", ""))
}

func TestCanPurchase(t *testing.T) {
	assert.True(t, CanPurchase("buyer-1", "seller-1"))
	assert.False(t, CanPurchase("seller-1", "seller-1"))
	assert.False(t, CanPurchase("", "seller-1"))
}
