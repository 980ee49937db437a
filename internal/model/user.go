package model

// Actor roles. The identity provider stamps one of these into the access token.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleWorker     = "worker"
	RoleWholesaler = "wholesaler"

	// RoleSystem is never issued to a person; it marks transitions made by the
	// workflow itself (auto-advance) in the audit trail.
	RoleSystem = "system"
)

// Roles lists every role a person can hold
var Roles = []string{RoleAdmin, RoleManager, RoleWorker, RoleWholesaler}

// ValidRole reports whether role is one a person can hold
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
