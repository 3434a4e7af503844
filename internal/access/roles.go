package access

// Role names. Keep these stable; they are part of the authorization contract
// and appear verbatim in role_memberships rows.
const (
	// RoleSystemAdmin is the system-wide administrative role. It is stored
	// as a membership with an empty tenant id.
	RoleSystemAdmin = "system_admin"

	// Tenant-privileged roles: full access to member data within the tenant.
	RoleAdmin   = "admin"
	RoleOwner   = "owner"
	RoleManager = "manager"

	// Lesser tenant roles.
	RoleReviewer = "reviewer"
	RoleScholar  = "scholar"
)

func IsSystemAdmin(role string) bool { return role == RoleSystemAdmin }

// IsTenantPrivileged reports whether a tenant role grants full access to
// other members' sensitive data within that tenant.
func IsTenantPrivileged(role string) bool {
	switch role {
	case RoleAdmin, RoleOwner, RoleManager:
		return true
	default:
		return false
	}
}
