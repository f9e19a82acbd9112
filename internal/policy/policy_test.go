package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/remcostoeten/authd/internal/domain"
)

func TestCan(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		action Action
		want   bool
	}{
		{"user can view own profile", domain.RoleUser, ActionViewProfile, true},
		{"user can edit own profile", domain.RoleUser, ActionEditProfile, true},
		{"user can view own sessions", domain.RoleUser, ActionViewSessions, true},
		{"user can revoke own session", domain.RoleUser, ActionRevokeOwnSession, true},
		{"user cannot access admin", domain.RoleUser, ActionAccessAdmin, false},
		{"user cannot list users", domain.RoleUser, ActionListUsers, false},
		{"admin can access admin", domain.RoleAdmin, ActionAccessAdmin, true},
		{"admin can list users", domain.RoleAdmin, ActionListUsers, true},
		{"admin can view profile", domain.RoleAdmin, ActionViewProfile, true},
		{"unknown role denied", "superuser", ActionViewProfile, false},
		{"empty role denied", "", ActionViewProfile, false},
		{"unknown action denied for user", domain.RoleUser, Action("launch_missiles"), false},
		{"unknown action allowed for admin", domain.RoleAdmin, Action("launch_missiles"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.action))
		})
	}
}
