package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loxodon/internal/models"
	"loxodon/internal/store"
)

func newRoleService(mem *store.Memory) *RoleService {
	return NewRoleService(mem, zap.NewNop().Sugar())
}

func mustCreateRole(t *testing.T, mem *store.Memory, title, tenantID string, perms models.StringList) models.Role {
	t.Helper()
	r := models.Role{Title: title, TenantID: tenantID, Permissions: perms}
	require.NoError(t, mem.CreateRole(context.Background(), &r))
	return r
}

func TestSeedDefaults(t *testing.T) {
	mem := store.NewMemory()
	svc := newRoleService(mem)
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaults(ctx, "T1"))
	roles, err := mem.ListRolesByTenant(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, roles, 3)
	titles := []string{roles[0].Title, roles[1].Title, roles[2].Title}
	assert.ElementsMatch(t, []string{"Site Admin", "Viewer", "Manager"}, titles)
	for _, r := range roles {
		assert.Empty(t, r.Permissions)
	}

	// Seeding again does not duplicate.
	require.NoError(t, svc.SeedDefaults(ctx, "T1"))
	roles, err = mem.ListRolesByTenant(ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, roles, 3)
}

func TestUpdateSiteAdminPrunesSiblings(t *testing.T) {
	mem := store.NewMemory()
	svc := newRoleService(mem)
	ctx := context.Background()

	admin := mustCreateRole(t, mem, "Site Admin", "T1", models.StringList{"users.read", "users.update", "roles.read"})
	viewer := mustCreateRole(t, mem, "Viewer", "T1", models.StringList{"users.read", "roles.read"})
	manager := mustCreateRole(t, mem, "Manager", "T1", models.StringList{"users.read", "users.update"})
	platform := mustCreateRole(t, mem, "Platform Admin", "T1", models.StringList{"*"})
	other := mustCreateRole(t, mem, "Viewer", "T2", models.StringList{"users.update"})

	newPerms := models.StringList{"users.read"}
	updated, err := svc.Update(ctx, admin.ID, UpdateRoleInput{Permissions: &newPerms})
	require.NoError(t, err)
	assert.Equal(t, newPerms, updated.Permissions)

	got, err := mem.GetRole(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"users.read"}, got.Permissions)

	got, err = mem.GetRole(ctx, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"users.read"}, got.Permissions)

	// Platform-admin-titled roles keep their permissions.
	got, err = mem.GetRole(ctx, platform.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"*"}, got.Permissions)

	// Other tenants are untouched.
	got, err = mem.GetRole(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"users.update"}, got.Permissions)
}

func TestUpdateNonSiteAdminDoesNotPropagate(t *testing.T) {
	mem := store.NewMemory()
	svc := newRoleService(mem)
	ctx := context.Background()

	viewer := mustCreateRole(t, mem, "Viewer", "T1", models.StringList{"users.read", "users.update"})
	manager := mustCreateRole(t, mem, "Manager", "T1", models.StringList{"users.read", "users.update"})

	newPerms := models.StringList{"users.read"}
	_, err := svc.Update(ctx, viewer.ID, UpdateRoleInput{Permissions: &newPerms})
	require.NoError(t, err)

	got, err := mem.GetRole(ctx, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"users.read", "users.update"}, got.Permissions)
}

func TestUpdatePropagationUsesPriorTitle(t *testing.T) {
	mem := store.NewMemory()
	svc := newRoleService(mem)
	ctx := context.Background()

	// Renaming a Site Admin while changing its permissions still propagates:
	// the role held the ceiling when the request arrived.
	admin := mustCreateRole(t, mem, "site admin", "T1", models.StringList{"users.read", "users.update"})
	viewer := mustCreateRole(t, mem, "Viewer", "T1", models.StringList{"users.update"})

	title := "Operator"
	newPerms := models.StringList{"users.read"}
	_, err := svc.Update(ctx, admin.ID, UpdateRoleInput{Title: &title, Permissions: &newPerms})
	require.NoError(t, err)

	got, err := mem.GetRole(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Permissions)

	// A title-only update of a Site Admin leaves siblings alone.
	admin2 := mustCreateRole(t, mem, "Site Admin", "T3", models.StringList{"users.read"})
	sibling := mustCreateRole(t, mem, "Viewer", "T3", models.StringList{"roles.read"})
	newTitle := "Site Admin"
	_, err = svc.Update(ctx, admin2.ID, UpdateRoleInput{Title: &newTitle})
	require.NoError(t, err)
	got, err = mem.GetRole(ctx, sibling.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"roles.read"}, got.Permissions)
}

func TestToggleGeolocation(t *testing.T) {
	mem := store.NewMemory()
	svc := newRoleService(mem)
	ctx := context.Background()

	admin := mustCreateRole(t, mem, "Site Admin", "T1", models.StringList{"users.read"})

	require.NoError(t, svc.ToggleGeolocation(ctx, "T1", true))
	got, err := mem.GetRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users.read", "location.read", "location.update"}, got.Permissions)

	// Enabling twice does not duplicate.
	require.NoError(t, svc.ToggleGeolocation(ctx, "T1", true))
	got, err = mem.GetRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, got.Permissions, 3)

	require.NoError(t, svc.ToggleGeolocation(ctx, "T1", false))
	got, err = mem.GetRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"users.read"}, got.Permissions)
}

func TestToggleGeolocationNoSiteAdmin(t *testing.T) {
	mem := store.NewMemory()
	mustCreateRole(t, mem, "Viewer", "T1", nil)
	err := newRoleService(mem).ToggleGeolocation(context.Background(), "T1", true)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
