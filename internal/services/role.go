package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"loxodon/internal/auth"
	"loxodon/internal/models"
	"loxodon/internal/store"
)

const siteAdminTitle = "Site Admin"

// Every tenant is seeded with these roles at customer-creation time.
var defaultRoleTitles = []string{siteAdminTitle, "Viewer", "Manager"}

// Permissions granted to a tenant's Site Admin when geolocation is enabled
// for the customer.
var geolocationPermissions = []string{"location.read", "location.update"}

func isSiteAdminTitle(title string) bool {
	return strings.EqualFold(strings.TrimSpace(title), siteAdminTitle)
}

type CreateRoleInput struct {
	Title       string
	TenantID    string
	Description *string
	Permissions models.StringList
}

type UpdateRoleInput struct {
	Title       *string
	TenantID    *string
	Description *string
	Permissions *models.StringList
}

type RoleService struct {
	store store.Store
	lg    *zap.SugaredLogger
}

func NewRoleService(st store.Store, lg *zap.SugaredLogger) *RoleService {
	return &RoleService{store: st, lg: lg}
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	return s.store.ListRoles(ctx)
}

func (s *RoleService) ListByTenant(ctx context.Context, tenantID string) ([]models.Role, error) {
	return s.store.ListRolesByTenant(ctx, tenantID)
}

func (s *RoleService) Get(ctx context.Context, id uint) (*models.Role, error) {
	return s.store.GetRole(ctx, id)
}

func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	r := models.Role{
		Title:       input.Title,
		TenantID:    input.TenantID,
		Description: input.Description,
		Permissions: input.Permissions,
	}
	if err := s.store.CreateRole(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Update applies the change and, when the prior title was "Site Admin" and
// the permission list changed, prunes every sibling role in the tenant down
// to the new list. No tenant role may hold a permission its Site Admin does
// not also hold; platform-admin-titled roles are exempt.
func (s *RoleService) Update(ctx context.Context, id uint, input UpdateRoleInput) (*models.Role, error) {
	prior, err := s.store.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateRole(ctx, id, store.RoleUpdate{
		Title:       input.Title,
		TenantID:    input.TenantID,
		Description: input.Description,
		Permissions: input.Permissions,
	})
	if err != nil {
		return nil, err
	}
	if input.Permissions != nil && isSiteAdminTitle(prior.Title) {
		// The primary update is already committed; sibling pruning is its own
		// all-or-nothing transaction.
		if err := s.propagateCeiling(ctx, updated); err != nil {
			s.lg.Errorw("site admin permission propagation failed",
				"roleId", updated.ID, "tenantId", updated.TenantID, "error", err)
		}
	}
	return updated, nil
}

func (s *RoleService) propagateCeiling(ctx context.Context, siteAdmin *models.Role) error {
	siblings, err := s.store.ListRolesByTenant(ctx, siteAdmin.TenantID)
	if err != nil {
		return err
	}
	changes := map[uint]models.StringList{}
	for _, sibling := range siblings {
		if sibling.ID == siteAdmin.ID || auth.IsPlatformAdminTitle(sibling.Title) {
			continue
		}
		pruned := make(models.StringList, 0, len(sibling.Permissions))
		for _, p := range sibling.Permissions {
			if siteAdmin.Permissions.Contains(p) {
				pruned = append(pruned, p)
			}
		}
		if len(pruned) != len(sibling.Permissions) {
			changes[sibling.ID] = pruned
		}
	}
	return s.store.ReplacePermissions(ctx, changes)
}

// SeedDefaults creates the three standard roles for a new tenant with empty
// permission lists. Existing titles are left alone.
func (s *RoleService) SeedDefaults(ctx context.Context, tenantID string) error {
	roles := make([]models.Role, 0, len(defaultRoleTitles))
	for _, title := range defaultRoleTitles {
		roles = append(roles, models.Role{Title: title, TenantID: tenantID, Permissions: models.StringList{}})
	}
	return s.store.CreateRolesSkipDuplicates(ctx, roles)
}

// ToggleGeolocation grants or revokes the geolocation permissions on the
// tenant's Site Admin role.
func (s *RoleService) ToggleGeolocation(ctx context.Context, tenantID string, enabled bool) error {
	roles, err := s.store.ListRolesByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if !isSiteAdminTitle(r.Title) {
			continue
		}
		perms := make(models.StringList, 0, len(r.Permissions)+len(geolocationPermissions))
		for _, p := range r.Permissions {
			if enabled || !contains(geolocationPermissions, p) {
				perms = append(perms, p)
			}
		}
		if enabled {
			for _, p := range geolocationPermissions {
				if !perms.Contains(p) {
					perms = append(perms, p)
				}
			}
		}
		_, err := s.store.UpdateRole(ctx, r.ID, store.RoleUpdate{Permissions: &perms})
		return err
	}
	return store.ErrNotFound
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
