package session

import "github.com/hackdojo/hackdojo/internal/api"

// Landing names the screen a user is sent to after an interactive sign-in.
type Landing string

const (
	LandingDashboard       Landing = "dashboard"
	LandingParentDashboard Landing = "parent-dashboard"
	LandingAdminDashboard  Landing = "admin-dashboard"
)

// Destination maps a role to its landing screen.
func Destination(role api.Role) Landing {
	switch role {
	case api.RoleParent:
		return LandingParentDashboard
	case api.RoleAdmin:
		return LandingAdminDashboard
	default:
		return LandingDashboard
	}
}
