// Package policy decides what an authenticated identity may do. It is pure
// computation over role and action, with no I/O, so handlers can consult it
// on every request without cost.
package policy

import "github.com/remcostoeten/authd/internal/domain"

// Action names a capability a caller may hold.
type Action string

const (
	ActionViewProfile      Action = "view_profile"
	ActionEditProfile      Action = "edit_profile"
	ActionViewSessions     Action = "view_sessions"
	ActionRevokeOwnSession Action = "revoke_own_session"
	ActionAccessAdmin      Action = "access_admin"
	ActionListUsers        Action = "list_users"
)

// userActions is the allow-list for the ordinary user role. Anything absent
// is denied.
var userActions = map[Action]struct{}{
	ActionViewProfile:      {},
	ActionEditProfile:      {},
	ActionViewSessions:     {},
	ActionRevokeOwnSession: {},
}

// Can reports whether a role holds an action. Admins hold every action;
// users hold the allow-list; unknown roles and unknown actions are denied.
// Can never errors: an authorization question always has an answer.
func Can(role string, action Action) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleUser:
		_, ok := userActions[action]
		return ok
	default:
		return false
	}
}
