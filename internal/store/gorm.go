package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loxodon/internal/models"
)

// Gorm is the Postgres-backed store.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) AutoMigrate() error {
	return g.db.AutoMigrate(&models.Customer{}, &models.Role{}, &models.User{}, &models.AuditLog{})
}

func wrapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (g *Gorm) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var cs []models.Customer
	err := g.db.WithContext(ctx).Order("created_at desc").Find(&cs).Error
	return cs, err
}

func (g *Gorm) GetCustomer(ctx context.Context, tenantID string) (*models.Customer, error) {
	var c models.Customer
	if err := g.db.WithContext(ctx).First(&c, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}

func (g *Gorm) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return g.db.WithContext(ctx).Create(c).Error
}

func (g *Gorm) UpdateCustomer(ctx context.Context, tenantID string, upd CustomerUpdate) (*models.Customer, error) {
	var c models.Customer
	if err := g.db.WithContext(ctx).First(&c, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, wrapErr(err)
	}
	if upd.Domain != nil {
		c.Domain = *upd.Domain
	}
	if upd.Active != nil {
		c.Active = *upd.Active
	}
	if upd.AutoSync != nil {
		c.AutoSync = *upd.AutoSync
	}
	c.UpdatedAt = time.Now()
	if err := g.db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (g *Gorm) DeleteCustomerCascade(ctx context.Context, tenantID string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.User{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.Role{}).Error; err != nil {
			return err
		}
		res := tx.Where("tenant_id = ?", tenantID).Delete(&models.Customer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (g *Gorm) ListUsersByTenant(ctx context.Context, tenantID string) ([]models.User, error) {
	var us []models.User
	err := g.db.WithContext(ctx).Preload("Role").Where("tenant_id = ?", tenantID).Order("created_at desc").Find(&us).Error
	return us, err
}

func (g *Gorm) GetUser(ctx context.Context, oid string) (*models.User, error) {
	var u models.User
	if err := g.db.WithContext(ctx).Preload("Role").First(&u, "oid = ?", oid).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &u, nil
}

func (g *Gorm) UpdateUser(ctx context.Context, oid string, upd UserUpdate) (*models.User, error) {
	var u models.User
	if err := g.db.WithContext(ctx).First(&u, "oid = ?", oid).Error; err != nil {
		return nil, wrapErr(err)
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.ClearRole {
		u.RoleID = nil
	} else if upd.RoleID != nil {
		u.RoleID = upd.RoleID
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.FirstLogin != nil {
		u.FirstLogin = upd.FirstLogin
	}
	if upd.LastActive != nil {
		u.LastActive = upd.LastActive
	}
	u.UpdatedAt = time.Now()
	if err := g.db.WithContext(ctx).Save(&u).Error; err != nil {
		return nil, err
	}
	u.Role = nil
	if u.RoleID != nil {
		var role models.Role
		if err := g.db.WithContext(ctx).First(&role, "id = ?", *u.RoleID).Error; err == nil {
			u.Role = &role
		}
	}
	return &u, nil
}

func (g *Gorm) CreateUsersSkipDuplicates(ctx context.Context, users []models.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&users)
	return res.RowsAffected, res.Error
}

func (g *Gorm) MarkMissingUsersDeleted(ctx context.Context, tenantID string, presentOIDs []string) (int64, error) {
	q := g.db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ? AND status <> ?", tenantID, models.UserStatusDeleted)
	if len(presentOIDs) > 0 {
		q = q.Where("oid NOT IN ?", presentOIDs)
	}
	res := q.Update("status", models.UserStatusDeleted)
	return res.RowsAffected, res.Error
}

func (g *Gorm) ListRoles(ctx context.Context) ([]models.Role, error) {
	var rs []models.Role
	err := g.db.WithContext(ctx).Order("id").Find(&rs).Error
	return rs, err
}

func (g *Gorm) ListRolesByTenant(ctx context.Context, tenantID string) ([]models.Role, error) {
	var rs []models.Role
	err := g.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("id").Find(&rs).Error
	return rs, err
}

func (g *Gorm) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	var r models.Role
	if err := g.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &r, nil
}

func (g *Gorm) CreateRole(ctx context.Context, r *models.Role) error {
	return g.db.WithContext(ctx).Create(r).Error
}

func (g *Gorm) CreateRolesSkipDuplicates(ctx context.Context, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error
}

func (g *Gorm) UpdateRole(ctx context.Context, id uint, upd RoleUpdate) (*models.Role, error) {
	var r models.Role
	if err := g.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	if upd.Title != nil {
		r.Title = *upd.Title
	}
	if upd.TenantID != nil {
		r.TenantID = *upd.TenantID
	}
	if upd.Description != nil {
		r.Description = upd.Description
	}
	if upd.Permissions != nil {
		r.Permissions = *upd.Permissions
	}
	r.UpdatedAt = time.Now()
	if err := g.db.WithContext(ctx).Save(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (g *Gorm) ReplacePermissions(ctx context.Context, perms map[uint]models.StringList) error {
	if len(perms) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(perms))
	for id := range perms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			res := tx.Model(&models.Role{}).Where("id = ?", id).
				Updates(map[string]interface{}{"permissions": perms[id], "updated_at": time.Now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

func (g *Gorm) auditLogQuery(ctx context.Context, f AuditLogFilter) *gorm.DB {
	q := g.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Start != nil {
		q = q.Where("created_at >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("created_at <= ?", *f.End)
	}
	return q
}

func (g *Gorm) ListAuditLogs(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, int64, error) {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	var total int64
	if err := g.auditLogQuery(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.AuditLog
	err := g.auditLogQuery(ctx, f).Order("created_at desc").
		Offset((page - 1) * limit).Limit(limit).Find(&logs).Error
	return logs, total, err
}

func (g *Gorm) AuditLogsByDateRange(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := g.auditLogQuery(ctx, f).Order("created_at desc").Find(&logs).Error
	return logs, err
}

func (g *Gorm) GetAuditLog(ctx context.Context, id int64) (*models.AuditLog, error) {
	var l models.AuditLog
	if err := g.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &l, nil
}

func (g *Gorm) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return g.db.WithContext(ctx).Create(l).Error
}

func (g *Gorm) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	start7 := now.Add(-7 * 24 * time.Hour)
	startMonth := now.AddDate(0, -1, 0)
	startYear := now.AddDate(-1, 0, 0)
	activeCutoff := now.Add(-2 * time.Minute)

	var ov Overview
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counts := []struct {
			dst *int64
			q   *gorm.DB
		}{
			{&ov.ActiveCustomers, tx.Model(&models.Customer{}).Where("active = ?", true)},
			{&ov.TotalUsers, tx.Model(&models.User{})},
			{&ov.NewUsers.Last7Days, tx.Model(&models.User{}).Where("created_at >= ?", start7)},
			{&ov.NewUsers.LastMonth, tx.Model(&models.User{}).Where("created_at >= ?", startMonth)},
			{&ov.NewUsers.LastYear, tx.Model(&models.User{}).Where("created_at >= ?", startYear)},
			{&ov.DeletedUsers.Last7Days, tx.Model(&models.User{}).Where("status = ? AND updated_at >= ?", models.UserStatusDeleted, start7)},
			{&ov.DeletedUsers.LastMonth, tx.Model(&models.User{}).Where("status = ? AND updated_at >= ?", models.UserStatusDeleted, startMonth)},
			{&ov.DeletedUsers.LastYear, tx.Model(&models.User{}).Where("status = ? AND updated_at >= ?", models.UserStatusDeleted, startYear)},
			{&ov.ActiveNow, tx.Model(&models.User{}).Where("last_active >= ?", activeCutoff)},
		}
		for _, c := range counts {
			if err := c.q.Count(c.dst).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ov, nil
}
