package rbac

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Principal describes the authenticated actor making a request.
type Principal struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      Role
}

// DisplayName combines the name parts, falling back to the email.
func (p *Principal) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// IsManager reports whether the principal holds the manager role.
func (p *Principal) IsManager() bool {
	return p != nil && p.Role == RoleManager
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context, nil when the
// request is anonymous.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
