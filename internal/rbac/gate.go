package rbac

// HasPermission reports whether the user holds at least one of the required
// permission names (logical OR across required).
//
// Rules:
// - nil user or missing role => false
// - empty required set => false
// - empty permission list on the role => false
//
// Pure and side-effect free; it is called on every guarded request.
func HasPermission(u *User, required ...string) bool {
	if u == nil || u.Role == nil || len(required) == 0 {
		return false
	}
	if len(u.Role.Permissions) == 0 {
		return false
	}
	granted := make(map[string]struct{}, len(u.Role.Permissions))
	for _, p := range u.Role.Permissions {
		granted[p.Name] = struct{}{}
	}
	for _, name := range required {
		if _, ok := granted[name]; ok {
			return true
		}
	}
	return false
}
