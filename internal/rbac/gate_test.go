package rbac

import "testing"

func userWith(perms ...string) *User {
	ps := make([]Permission, 0, len(perms))
	for i, p := range perms {
		ps = append(ps, Permission{ID: int64(i + 1), Name: p})
	}
	return &User{
		ID:       1,
		Username: "cashier",
		Role:     &Role{ID: 2, Name: "sales", Permissions: ps},
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		user     *User
		required []string
		want     bool
	}{
		{"nil user", nil, []string{PermissionFullAccess}, false},
		{"no role", &User{ID: 1, Username: "x"}, []string{PermissionFullAccess}, false},
		{"empty required", userWith(PermissionFullAccess), nil, false},
		{"empty permission list", userWith(), []string{PermissionFullAccess}, false},
		{"direct match", userWith(PermissionSalespersonAccess), []string{PermissionSalespersonAccess}, true},
		{"or across required", userWith(PermissionSalespersonAccess), []string{PermissionAdministratorAccess, PermissionSalespersonAccess}, true},
		{"no intersection", userWith(PermissionSalespersonAccess), []string{PermissionAdministratorAccess}, false},
		{"multiple grants", userWith(PermissionFullAccess, PermissionAdministratorAccess), []string{PermissionAdministratorAccess}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.user, tt.required...); got != tt.want {
				t.Fatalf("HasPermission(%v, %v) = %v, want %v", tt.user, tt.required, got, tt.want)
			}
		})
	}
}

func TestHasPermissionIsPure(t *testing.T) {
	u := userWith(PermissionSalespersonAccess)
	before := len(u.Role.Permissions)
	for i := 0; i < 3; i++ {
		if !HasPermission(u, PermissionSalespersonAccess) {
			t.Fatalf("expected true on call %d", i)
		}
	}
	if len(u.Role.Permissions) != before {
		t.Fatalf("gate mutated the user")
	}
}

func TestNormalizeEnsuresPermissionList(t *testing.T) {
	u := &User{ID: 1, Username: "x", Role: &Role{Name: "viewer"}}
	u.Normalize()
	if u.Role.Permissions == nil {
		t.Fatalf("expected non-nil permission list")
	}
	// nil user and role-less user must be safe
	var nilUser *User
	nilUser.Normalize()
	(&User{}).Normalize()
}
