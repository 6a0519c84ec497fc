package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loxodon/internal/auth"
	"loxodon/internal/models"
	"loxodon/internal/services"
	"loxodon/internal/store"
)

func requestWithAccess(method, target string, acc auth.Access) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(auth.WithAccess(context.Background(), acc))
}

// A non-global caller whose access context carries no tenant gets a 403, never
// the unscoped listing.
func TestListRolesWithoutResolvedTenant(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.CreateRole(ctx, &models.Role{Title: "Viewer", TenantID: "T1"}))
	require.NoError(t, mem.CreateRole(ctx, &models.Role{Title: "Viewer", TenantID: "T2"}))
	lg := zap.NewNop().Sugar()
	h := ListRoles(services.NewRoleService(mem, lg), lg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithAccess(http.MethodGet, "/roles",
		auth.Access{OID: "stray", Permissions: []string{"roles.read"}}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "T1")
	assert.NotContains(t, rec.Body.String(), "T2")
}

func TestListAuditLogsWithoutResolvedTenant(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.CreateAuditLog(ctx, &models.AuditLog{
		TenantID: "T1", UserID: "u1", Action: "roles.update", Description: "x",
	}))
	lg := zap.NewNop().Sugar()
	logs := services.NewAuditLogService(mem, lg)
	users := services.NewUserService(mem, nil, lg)
	h := ListAuditLogs(logs, users, lg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithAccess(http.MethodGet, "/audit-logs",
		auth.Access{OID: "stray", Permissions: []string{"audit_logs.read"}}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "T1")
}
