package rbac

// Permission names. Keep these stable; they are part of the backend's
// role/permission contract and are matched by name, not by id.
const (
	PermissionFullAccess          = "full access"
	PermissionAdministratorAccess = "administrator access"
	PermissionSalespersonAccess   = "salesperson access"
)

// Permission is a named capability grant attached to a role.
type Permission struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Role is a named bundle of permissions. Order of permissions is irrelevant.
type Role struct {
	ID          int64        `json:"id,omitempty"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// User is the authenticated principal as returned by the backend's
// current-user endpoint.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     *Role  `json:"role,omitempty"`
}

// PermissionNames returns the names of all permissions granted to the user.
// A nil user or a user without a role has no permissions.
func (u *User) PermissionNames() []string {
	if u == nil || u.Role == nil {
		return nil
	}
	out := make([]string, 0, len(u.Role.Permissions))
	for _, p := range u.Role.Permissions {
		out = append(out, p.Name)
	}
	return out
}

// Normalize ensures the role's permission list is non-nil so that consumers
// never have to distinguish "absent" from "empty".
func (u *User) Normalize() {
	if u == nil || u.Role == nil {
		return
	}
	if u.Role.Permissions == nil {
		u.Role.Permissions = []Permission{}
	}
}
