package domain

import "strings"

// Role identifies the privilege tier of an acting principal.
type Role string

const (
	RoleUnspecified Role = ""
	// RoleUser is a marketplace customer with no back-office rights.
	RoleUser Role = "user"
	// RoleSeller is a merchant account owner.
	RoleSeller Role = "seller"
	// RoleAdmin is a back-office operator whose rights come from explicit grants.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin holds every permission implicitly.
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole canonicalizes a role label.
func ParseRole(value string) (Role, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch Role(trimmed) {
	case RoleUser, RoleSeller, RoleAdmin, RoleSuperAdmin:
		return Role(trimmed), true
	default:
		return RoleUnspecified, false
	}
}

// PermissionKey names a grantable back-office permission.
type PermissionKey string

const (
	// PermissionSellers covers seller onboarding and lifecycle actions.
	PermissionSellers PermissionKey = "sellers"
	// PermissionProducts covers product listing moderation.
	PermissionProducts PermissionKey = "products"
	// PermissionReturns covers return and refund handling.
	PermissionReturns PermissionKey = "returns"
	// PermissionFinance covers payout and finance entries.
	PermissionFinance PermissionKey = "finance"
	// PermissionUsers covers account management. It is never effective for
	// non-super-admins regardless of stored grants.
	PermissionUsers PermissionKey = "users"
)

// ParsePermissionKey canonicalizes a permission key label.
func ParsePermissionKey(value string) (PermissionKey, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch PermissionKey(trimmed) {
	case PermissionSellers, PermissionProducts, PermissionReturns, PermissionFinance, PermissionUsers:
		return PermissionKey(trimmed), true
	default:
		return "", false
	}
}

// Actor is the principal requesting a transition. Permission grants are
// authoritative only for admins; super admins hold every permission and the
// remaining roles hold none.
type Actor struct {
	ID          string
	Role        Role
	Permissions map[PermissionKey]bool
}

// HasPermission reports whether the actor's stored grants include key.
// It does not apply role rules; the permission gate owns those.
func (a Actor) HasPermission(key PermissionKey) bool {
	return a.Permissions[key]
}
