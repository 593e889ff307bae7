package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleMember     = "member"
	RoleSuperAdmin = "super_admin" // platform operators only
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
