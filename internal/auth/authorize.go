package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loxodon/internal/store"
)

// PermissionWildcard grants unconditional access to every check.
const PermissionWildcard = "*"

var platformAdminTitles = map[string]bool{
	"platform admin": true,
	"platform-admin": true,
}

// IsPlatformAdminTitle reports whether a role title confers cross-tenant
// superuser access. Matching is case-insensitive and trims whitespace.
func IsPlatformAdminTitle(title string) bool {
	return platformAdminTitles[strings.ToLower(strings.TrimSpace(title))]
}

// Authorizer resolves a verified caller into an Access and gates routes on
// it. Roles can arrive in two independent ways: embedded in the token, or
// persisted on the caller's User row — whichever is present governs.
type Authorizer struct {
	store store.Store
	lg    *zap.SugaredLogger
}

func NewAuthorizer(st store.Store, lg *zap.SugaredLogger) *Authorizer {
	return &Authorizer{store: st, lg: lg}
}

func tokenGrantsPlatformAdmin(claims Claims) bool {
	for _, role := range claims.Roles {
		if IsPlatformAdminTitle(role) {
			return true
		}
	}
	return false
}

// Resolve builds the caller's access context: tenant membership and effective
// permission set. A platform-admin role title overrides whatever permission
// list is stored.
func (a *Authorizer) Resolve(ctx context.Context, claims Claims) (Access, error) {
	acc := Access{OID: claims.ActorOID()}
	if tokenGrantsPlatformAdmin(claims) {
		acc.Global = true
		acc.Permissions = []string{PermissionWildcard}
	}
	if acc.OID == "" {
		return acc, nil
	}
	u, err := a.store.GetUser(ctx, acc.OID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return acc, nil
		}
		return acc, err
	}
	acc.TenantID = u.TenantID
	if u.Role != nil {
		switch {
		case IsPlatformAdminTitle(u.Role.Title):
			acc.Global = true
			acc.Permissions = []string{PermissionWildcard}
		case !acc.Global:
			acc.Permissions = u.Role.Permissions
			if acc.Has(PermissionWildcard) {
				acc.Global = true
			}
		}
	}
	return acc, nil
}

type accessCheck func(r *http.Request, acc Access) bool

func (a *Authorizer) gate(check accessCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acc, ok := AccessFrom(r.Context())
			if !ok {
				var err error
				acc, err = a.Resolve(r.Context(), ClaimsFrom(r.Context()))
				if err != nil {
					a.lg.Errorw("access resolution failed", "error", err)
					writeError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
			}
			r = r.WithContext(WithAccess(r.Context(), acc))
			if check != nil && !check(r, acc) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Attach resolves the caller's access without enforcing a permission; the
// handler decides. Used where tenant scoping is the only gate.
func (a *Authorizer) Attach() func(http.Handler) http.Handler {
	return a.gate(nil)
}

// RequireGlobal admits only platform admins and wildcard-permission callers.
func (a *Authorizer) RequireGlobal() func(http.Handler) http.Handler {
	return a.gate(func(_ *http.Request, acc Access) bool {
		return acc.Global
	})
}

// RequirePermissions admits callers holding all of the listed permissions.
func (a *Authorizer) RequirePermissions(perms ...string) func(http.Handler) http.Handler {
	return a.gate(func(_ *http.Request, acc Access) bool {
		return acc.Global || acc.HasAll(perms...)
	})
}

// RequireAnyPermission admits callers holding at least one of the listed
// permissions.
func (a *Authorizer) RequireAnyPermission(perms ...string) func(http.Handler) http.Handler {
	return a.gate(func(_ *http.Request, acc Access) bool {
		return acc.Global || acc.HasAny(perms...)
	})
}

// RequireSelfOrPermission admits the subject of the request (the URL
// parameter matches the caller's oid) or callers holding the permission.
func (a *Authorizer) RequireSelfOrPermission(perm, param string) func(http.Handler) http.Handler {
	return a.gate(func(r *http.Request, acc Access) bool {
		if subject := chi.URLParam(r, param); subject != "" && subject == acc.OID {
			return true
		}
		return acc.Global || acc.Has(perm)
	})
}
