package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loxodon/internal/models"
	"loxodon/internal/store"
)

func seedUserWithRole(t *testing.T, mem *store.Memory, oid, tenantID, roleTitle string, perms models.StringList) {
	t.Helper()
	ctx := context.Background()
	role := models.Role{Title: roleTitle, TenantID: tenantID, Permissions: perms}
	require.NoError(t, mem.CreateRole(ctx, &role))
	_, err := mem.CreateUsersSkipDuplicates(ctx, []models.User{{OID: oid, Email: oid + "@acme.com", TenantID: tenantID}})
	require.NoError(t, err)
	_, err = mem.UpdateUser(ctx, oid, store.UserUpdate{RoleID: &role.ID})
	require.NoError(t, err)
}

func TestResolveTokenPlatformAdmin(t *testing.T) {
	a := NewAuthorizer(store.NewMemory(), zap.NewNop().Sugar())
	acc, err := a.Resolve(context.Background(), Claims{OID: "x", Roles: []string{"Platform-Admin"}})
	require.NoError(t, err)
	assert.True(t, acc.Global)
	assert.True(t, acc.Has("anything.at.all"))
}

func TestResolveStoredRole(t *testing.T) {
	mem := store.NewMemory()
	seedUserWithRole(t, mem, "u1", "T1", "Viewer", models.StringList{"users.read"})
	a := NewAuthorizer(mem, zap.NewNop().Sugar())

	acc, err := a.Resolve(context.Background(), Claims{OID: "u1"})
	require.NoError(t, err)
	assert.False(t, acc.Global)
	assert.Equal(t, "T1", acc.TenantID)
	assert.True(t, acc.Has("users.read"))
	assert.False(t, acc.Has("users.update"))
}

func TestResolvePlatformAdminTitleOverridesStoredList(t *testing.T) {
	mem := store.NewMemory()
	seedUserWithRole(t, mem, "u1", "T1", "platform admin", models.StringList{"users.read"})
	a := NewAuthorizer(mem, zap.NewNop().Sugar())

	acc, err := a.Resolve(context.Background(), Claims{OID: "u1"})
	require.NoError(t, err)
	assert.True(t, acc.Global)
	assert.Equal(t, []string{PermissionWildcard}, acc.Permissions)
}

func TestResolveWildcardPermissionGrantsGlobal(t *testing.T) {
	mem := store.NewMemory()
	seedUserWithRole(t, mem, "u1", "T1", "Root", models.StringList{"*"})
	a := NewAuthorizer(mem, zap.NewNop().Sugar())

	acc, err := a.Resolve(context.Background(), Claims{OID: "u1"})
	require.NoError(t, err)
	assert.True(t, acc.Global)
}

func TestResolveUnknownUser(t *testing.T) {
	a := NewAuthorizer(store.NewMemory(), zap.NewNop().Sugar())
	acc, err := a.Resolve(context.Background(), Claims{OID: "ghost"})
	require.NoError(t, err)
	assert.False(t, acc.Global)
	assert.Empty(t, acc.Permissions)
	assert.Empty(t, acc.TenantID)
}

func TestCanAccessTenant(t *testing.T) {
	assert.True(t, Access{Global: true}.CanAccessTenant("T9"))
	assert.True(t, Access{TenantID: "T1"}.CanAccessTenant("T1"))
	assert.False(t, Access{TenantID: "T1"}.CanAccessTenant("T2"))
	assert.False(t, Access{}.CanAccessTenant("T1"))
}

func gateStatus(t *testing.T, mem *store.Memory, claims Claims, gate func(*Authorizer) func(http.Handler) http.Handler, path, pattern string) int {
	t.Helper()
	a := NewAuthorizer(mem, zap.NewNop().Sugar())
	r := chi.NewRouter()
	r.With(gate(a)).Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequirePermissions(t *testing.T) {
	mem := store.NewMemory()
	seedUserWithRole(t, mem, "u1", "T1", "Viewer", models.StringList{"users.read"})

	gate := func(a *Authorizer) func(http.Handler) http.Handler {
		return a.RequirePermissions("users.read", "users.update")
	}
	assert.Equal(t, http.StatusForbidden, gateStatus(t, mem, Claims{OID: "u1"}, gate, "/x", "/x"))

	single := func(a *Authorizer) func(http.Handler) http.Handler {
		return a.RequirePermissions("users.read")
	}
	assert.Equal(t, http.StatusOK, gateStatus(t, mem, Claims{OID: "u1"}, single, "/x", "/x"))
}

func TestRequireAnyPermission(t *testing.T) {
	mem := store.NewMemory()
	seedUserWithRole(t, mem, "u1", "T1", "Viewer", models.StringList{"logs.read"})

	gate := func(a *Authorizer) func(http.Handler) http.Handler {
		return a.RequireAnyPermission("audit_logs.read", "logs.read")
	}
	assert.Equal(t, http.StatusOK, gateStatus(t, mem, Claims{OID: "u1"}, gate, "/x", "/x"))

	none := func(a *Authorizer) func(http.Handler) http.Handler {
		return a.RequireAnyPermission("roles.update")
	}
	assert.Equal(t, http.StatusForbidden, gateStatus(t, mem, Claims{OID: "u1"}, none, "/x", "/x"))
}

func TestRequireSelfOrPermission(t *testing.T) {
	mem := store.NewMemory()
	seedUserWithRole(t, mem, "u1", "T1", "Viewer", models.StringList{})

	gate := func(a *Authorizer) func(http.Handler) http.Handler {
		return a.RequireSelfOrPermission("users.read", "oid")
	}
	// Self-service works with an empty permission set.
	assert.Equal(t, http.StatusOK, gateStatus(t, mem, Claims{OID: "u1"}, gate, "/users/u1", "/users/{oid}"))
	assert.Equal(t, http.StatusForbidden, gateStatus(t, mem, Claims{OID: "u1"}, gate, "/users/u2", "/users/{oid}"))
}

func TestRequireGlobal(t *testing.T) {
	mem := store.NewMemory()
	seedUserWithRole(t, mem, "u1", "T1", "Viewer", models.StringList{"users.read"})

	gate := func(a *Authorizer) func(http.Handler) http.Handler { return a.RequireGlobal() }
	assert.Equal(t, http.StatusForbidden, gateStatus(t, mem, Claims{OID: "u1"}, gate, "/x", "/x"))
	assert.Equal(t, http.StatusOK, gateStatus(t, mem, Claims{OID: "u1", Roles: []string{"platform admin"}}, gate, "/x", "/x"))
}

func TestIsPlatformAdminTitle(t *testing.T) {
	assert.True(t, IsPlatformAdminTitle("Platform Admin"))
	assert.True(t, IsPlatformAdminTitle("  platform-admin  "))
	assert.False(t, IsPlatformAdminTitle("Site Admin"))
}
