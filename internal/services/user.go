package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"loxodon/internal/directory"
	"loxodon/internal/models"
	"loxodon/internal/store"
)

var (
	// ErrRoleNotFound is returned when a user update names a role id that
	// does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleTenantMismatch is returned when a user update names a role
	// belonging to another tenant.
	ErrRoleTenantMismatch = errors.New("role belongs to a different tenant")
)

type UpdateUserInput struct {
	Email *string
	// SetRole marks the role field as present; a nil RoleID then clears the
	// user's role.
	SetRole bool
	RoleID  *uint
	Status  *models.UserStatus
}

type UserService struct {
	store store.Store
	dir   directory.Directory
	lg    *zap.SugaredLogger
}

func NewUserService(st store.Store, dir directory.Directory, lg *zap.SugaredLogger) *UserService {
	return &UserService{store: st, dir: dir, lg: lg}
}

func (s *UserService) ListByTenant(ctx context.Context, tenantID string) ([]models.User, error) {
	return s.store.ListUsersByTenant(ctx, tenantID)
}

func (s *UserService) Get(ctx context.Context, oid string) (*models.User, error) {
	return s.store.GetUser(ctx, oid)
}

func (s *UserService) Update(ctx context.Context, oid string, input UpdateUserInput) (*models.User, error) {
	u, err := s.store.GetUser(ctx, oid)
	if err != nil {
		return nil, err
	}
	upd := store.UserUpdate{Email: input.Email, Status: input.Status}
	if input.SetRole {
		if input.RoleID == nil {
			upd.ClearRole = true
		} else {
			role, err := s.store.GetRole(ctx, *input.RoleID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, ErrRoleNotFound
				}
				return nil, err
			}
			if role.TenantID != u.TenantID {
				return nil, ErrRoleTenantMismatch
			}
			upd.RoleID = input.RoleID
		}
	}
	return s.store.UpdateUser(ctx, oid, upd)
}

// TouchActivity stamps lastActive and, on the first call of the user's
// lifetime, firstLogin. The second return value reports whether firstLogin
// was set by this call.
func (s *UserService) TouchActivity(ctx context.Context, oid string) (*models.User, bool, error) {
	u, err := s.store.GetUser(ctx, oid)
	if err != nil {
		return nil, false, err
	}
	now := time.Now()
	upd := store.UserUpdate{LastActive: &now}
	firstLoginSet := u.FirstLogin == nil
	if firstLoginSet {
		upd.FirstLogin = &now
	}
	updated, err := s.store.UpdateUser(ctx, oid, upd)
	if err != nil {
		return nil, false, err
	}
	return updated, firstLoginSet, nil
}

// Sync pulls the directory accounts for the customer's domain, upserts them,
// and soft-deletes every local user absent from the fetched set. A fetch that
// returns zero users marks the whole tenant deleted.
func (s *UserService) Sync(ctx context.Context, tenantID, domain string) error {
	dirUsers, err := s.dir.UsersForDomain(ctx, domain)
	if err != nil {
		return err
	}
	toCreate := make([]models.User, 0, len(dirUsers))
	oids := make([]string, 0, len(dirUsers))
	for _, du := range dirUsers {
		toCreate = append(toCreate, models.User{
			OID:      du.OID,
			Email:    du.Email,
			TenantID: tenantID,
			Status:   models.UserStatusActive,
		})
		oids = append(oids, du.OID)
	}
	if _, err := s.store.CreateUsersSkipDuplicates(ctx, toCreate); err != nil {
		return err
	}
	marked, err := s.store.MarkMissingUsersDeleted(ctx, tenantID, oids)
	if err != nil {
		return err
	}
	if len(dirUsers) == 0 && marked > 0 {
		s.lg.Warnw("directory returned no users; tenant marked deleted",
			"tenantId", tenantID, "domain", domain, "marked", marked)
	}
	return nil
}
