package auth

import "context"

type contextKey string

const (
	contextKeyPrincipal contextKey = "auth.principal"
	contextKeyRole      contextKey = "auth.role"
)

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, principal string, role Role) context.Context {
	ctx = context.WithValue(ctx, contextKeyPrincipal, principal)
	ctx = context.WithValue(ctx, contextKeyRole, role)
	return ctx
}

// PrincipalFromContext extracts the authenticated principal from context.
func PrincipalFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyPrincipal)
	if principal, ok := value.(string); ok {
		return principal
	}
	return ""
}

// RoleFromContext extracts role from context.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyRole)
	if role, ok := value.(Role); ok {
		return role
	}
	if role, ok := value.(string); ok {
		if normalized, valid := NormalizeRole(role); valid {
			return normalized
		}
	}
	return ""
}
