package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
	RoleInspector   = "inspector"
	RoleSuperAdmin  = "super_admin"
	RoleSupport     = "support" // hidden role
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleSupport }
