package auth

import "context"

type ctxKey string

const (
	claimsKey ctxKey = "verifiedClaims"
	accessKey ctxKey = "resolvedAccess"
)

// Claims is the fixed-shape view of a verified bearer token. OID is the
// directory subject id; some deployments only carry the standard sub claim.
type Claims struct {
	Subject string
	OID     string
	Roles   []string
}

// ActorOID returns the caller's directory subject id, preferring the oid
// claim over sub.
func (c Claims) ActorOID() string {
	if c.OID != "" {
		return c.OID
	}
	return c.Subject
}

// Access is the caller's resolved authorization context: effective permission
// set, home tenant, and whether the caller may act across tenants. It is
// resolved once per request and carried on the context.
type Access struct {
	OID         string
	TenantID    string
	Permissions []string
	Global      bool
}

func (a Access) Has(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm || p == PermissionWildcard {
			return true
		}
	}
	return false
}

func (a Access) HasAll(perms ...string) bool {
	for _, p := range perms {
		if !a.Has(p) {
			return false
		}
	}
	return true
}

func (a Access) HasAny(perms ...string) bool {
	for _, p := range perms {
		if a.Has(p) {
			return true
		}
	}
	return false
}

// CanAccessTenant reports whether the caller may touch resources of the given
// tenant.
func (a Access) CanAccessTenant(tenantID string) bool {
	return a.Global || (a.TenantID != "" && a.TenantID == tenantID)
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) Claims {
	if v, ok := ctx.Value(claimsKey).(Claims); ok {
		return v
	}
	return Claims{}
}

func WithAccess(ctx context.Context, a Access) context.Context {
	return context.WithValue(ctx, accessKey, a)
}

func AccessFrom(ctx context.Context) (Access, bool) {
	v, ok := ctx.Value(accessKey).(Access)
	return v, ok
}
