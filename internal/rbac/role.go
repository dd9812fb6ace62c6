// Package rbac implements the role model and page guards. All role
// comparisons live here; the rest of the application never inspects raw
// role strings.
package rbac

import (
	"fmt"
	"strings"
)

// Role is an ordered permission level. The zero value is not a valid role.
type Role int

const (
	// RoleUser is the default role assigned on registration.
	RoleUser Role = iota + 1
	// RoleManager can review activity and contact submissions.
	RoleManager
	// RoleAdmin can manage users and roles.
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUser:    "user",
	RoleManager: "manager",
	RoleAdmin:   "admin",
}

// ParseRole converts a stored role name into a Role. Unknown or empty
// names are rejected so callers can decide how to degrade.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "user":
		return RoleUser, nil
	case "manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("rbac: unknown role %q", name)
	}
}

// String returns the canonical role name.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Roles returns all roles ordered by rank.
func Roles() []Role {
	return []Role{RoleUser, RoleManager, RoleAdmin}
}

// HasRole reports whether current satisfies required on the hierarchy:
// user(1) < manager(2) < admin(3).
func HasRole(current, required Role) bool {
	if !current.Valid() || !required.Valid() {
		return false
	}
	return current >= required
}

// HasAnyRole reports whether current is a member of allowed. This is an
// explicit allow-list: hierarchy is deliberately ignored, so an admin is
// not implied by a manager-only list.
func HasAnyRole(current Role, allowed []Role) bool {
	if !current.Valid() {
		return false
	}
	for _, role := range allowed {
		if current == role {
			return true
		}
	}
	return false
}

// Requirement describes what a protected resource demands: either a
// minimum role on the hierarchy, or an explicit allow-list.
type Requirement struct {
	Minimum Role
	AnyOf   []Role
}

// MinimumRole builds a hierarchy requirement.
func MinimumRole(role Role) Requirement {
	return Requirement{Minimum: role}
}

// AnyOfRoles builds an allow-list requirement.
func AnyOfRoles(roles ...Role) Requirement {
	return Requirement{AnyOf: roles}
}

// CanAccess decides whether the principal satisfies the requirement. An
// absent principal never satisfies anything.
func CanAccess(p *Principal, req Requirement) bool {
	if p == nil {
		return false
	}
	if len(req.AnyOf) > 0 {
		return HasAnyRole(p.Role, req.AnyOf)
	}
	if req.Minimum.Valid() {
		return HasRole(p.Role, req.Minimum)
	}
	return true
}
