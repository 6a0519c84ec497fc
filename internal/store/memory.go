package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"loxodon/internal/models"
)

// Memory is an in-process Store used by unit tests. It mirrors the gorm
// store's semantics, including atomic cascade deletes and bulk permission
// replacement.
type Memory struct {
	mu         sync.Mutex
	customers  map[string]models.Customer
	users      map[string]models.User
	roles      map[uint]models.Role
	logs       map[int64]models.AuditLog
	nextRoleID uint
	nextLogID  int64
}

func NewMemory() *Memory {
	return &Memory{
		customers:  map[string]models.Customer{},
		users:      map[string]models.User{},
		roles:      map[uint]models.Role{},
		logs:       map[int64]models.AuditLog{},
		nextRoleID: 1,
		nextLogID:  1,
	}
}

func (m *Memory) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs := make([]models.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].TenantID < cs[j].TenantID })
	return cs, nil
}

func (m *Memory) GetCustomer(ctx context.Context, tenantID string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) CreateCustomer(ctx context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.customers[c.TenantID] = *c
	return nil
}

func (m *Memory) UpdateCustomer(ctx context.Context, tenantID string, upd CustomerUpdate) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[tenantID]
	if !ok {
		return nil, ErrNotFound
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
	m.customers[tenantID] = c
	return &c, nil
}

func (m *Memory) DeleteCustomerCascade(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[tenantID]; !ok {
		return ErrNotFound
	}
	for oid, u := range m.users {
		if u.TenantID == tenantID {
			delete(m.users, oid)
		}
	}
	for id, r := range m.roles {
		if r.TenantID == tenantID {
			delete(m.roles, id)
		}
	}
	delete(m.customers, tenantID)
	return nil
}

func (m *Memory) userWithRole(u models.User) models.User {
	if u.RoleID != nil {
		if r, ok := m.roles[*u.RoleID]; ok {
			u.Role = &r
		}
	}
	return u
}

func (m *Memory) ListUsersByTenant(ctx context.Context, tenantID string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	us := make([]models.User, 0)
	for _, u := range m.users {
		if u.TenantID == tenantID {
			us = append(us, m.userWithRole(u))
		}
	}
	sort.Slice(us, func(i, j int) bool { return us[i].OID < us[j].OID })
	return us, nil
}

func (m *Memory) GetUser(ctx context.Context, oid string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[oid]
	if !ok {
		return nil, ErrNotFound
	}
	u = m.userWithRole(u)
	return &u, nil
}

func (m *Memory) UpdateUser(ctx context.Context, oid string, upd UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[oid]
	if !ok {
		return nil, ErrNotFound
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
	m.users[oid] = u
	u = m.userWithRole(u)
	return &u, nil
}

func (m *Memory) CreateUsersSkipDuplicates(ctx context.Context, users []models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var created int64
	now := time.Now()
	for _, u := range users {
		if _, ok := m.users[u.OID]; ok {
			continue
		}
		if u.Status == "" {
			u.Status = models.UserStatusActive
		}
		u.CreatedAt = now
		u.UpdatedAt = now
		m.users[u.OID] = u
		created++
	}
	return created, nil
}

func (m *Memory) MarkMissingUsersDeleted(ctx context.Context, tenantID string, presentOIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	present := map[string]bool{}
	for _, oid := range presentOIDs {
		present[oid] = true
	}
	var marked int64
	for oid, u := range m.users {
		if u.TenantID != tenantID || u.Status == models.UserStatusDeleted || present[oid] {
			continue
		}
		u.Status = models.UserStatusDeleted
		u.UpdatedAt = time.Now()
		m.users[oid] = u
		marked++
	}
	return marked, nil
}

func (m *Memory) ListRoles(ctx context.Context) ([]models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedRoles(func(models.Role) bool { return true }), nil
}

func (m *Memory) ListRolesByTenant(ctx context.Context, tenantID string) ([]models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedRoles(func(r models.Role) bool { return r.TenantID == tenantID }), nil
}

func (m *Memory) sortedRoles(keep func(models.Role) bool) []models.Role {
	rs := make([]models.Role, 0)
	for _, r := range m.roles {
		if keep(r) {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
	return rs
}

func (m *Memory) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) CreateRole(ctx context.Context, r *models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertRole(r)
	return nil
}

func (m *Memory) insertRole(r *models.Role) {
	r.ID = m.nextRoleID
	m.nextRoleID++
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Permissions == nil {
		r.Permissions = models.StringList{}
	}
	m.roles[r.ID] = *r
}

func (m *Memory) CreateRolesSkipDuplicates(ctx context.Context, roles []models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range roles {
		dup := false
		for _, existing := range m.roles {
			if existing.TenantID == roles[i].TenantID && existing.Title == roles[i].Title {
				dup = true
				break
			}
		}
		if !dup {
			m.insertRole(&roles[i])
		}
	}
	return nil
}

func (m *Memory) UpdateRole(ctx context.Context, id uint, upd RoleUpdate) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
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
	m.roles[id] = r
	return &r, nil
}

func (m *Memory) ReplacePermissions(ctx context.Context, perms map[uint]models.StringList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range perms {
		if _, ok := m.roles[id]; !ok {
			return ErrNotFound
		}
	}
	for id, p := range perms {
		r := m.roles[id]
		r.Permissions = p
		r.UpdatedAt = time.Now()
		m.roles[id] = r
	}
	return nil
}

func (m *Memory) matchLog(l models.AuditLog, f AuditLogFilter) bool {
	if f.TenantID != "" && l.TenantID != f.TenantID {
		return false
	}
	if f.UserID != "" && l.UserID != f.UserID {
		return false
	}
	if f.Start != nil && l.CreatedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && l.CreatedAt.After(*f.End) {
		return false
	}
	return true
}

func (m *Memory) filteredLogs(f AuditLogFilter) []models.AuditLog {
	logs := make([]models.AuditLog, 0)
	for _, l := range m.logs {
		if m.matchLog(l, f) {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].ID > logs[j].ID
		}
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	return logs
}

func (m *Memory) ListAuditLogs(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	logs := m.filteredLogs(f)
	total := int64(len(logs))
	start := (page - 1) * limit
	if start >= len(logs) {
		return []models.AuditLog{}, total, nil
	}
	end := start + limit
	if end > len(logs) {
		end = len(logs)
	}
	return logs[start:end], total, nil
}

func (m *Memory) AuditLogsByDateRange(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filteredLogs(f), nil
}

func (m *Memory) GetAuditLog(ctx context.Context, id int64) (*models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *Memory) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.nextLogID
	m.nextLogID++
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	m.logs[l.ID] = *l
	return nil
}

func (m *Memory) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start7 := now.Add(-7 * 24 * time.Hour)
	startMonth := now.AddDate(0, -1, 0)
	startYear := now.AddDate(-1, 0, 0)
	activeCutoff := now.Add(-2 * time.Minute)

	var ov Overview
	for _, c := range m.customers {
		if c.Active {
			ov.ActiveCustomers++
		}
	}
	for _, u := range m.users {
		ov.TotalUsers++
		if !u.CreatedAt.Before(start7) {
			ov.NewUsers.Last7Days++
		}
		if !u.CreatedAt.Before(startMonth) {
			ov.NewUsers.LastMonth++
		}
		if !u.CreatedAt.Before(startYear) {
			ov.NewUsers.LastYear++
		}
		if u.Status == models.UserStatusDeleted {
			if !u.UpdatedAt.Before(start7) {
				ov.DeletedUsers.Last7Days++
			}
			if !u.UpdatedAt.Before(startMonth) {
				ov.DeletedUsers.LastMonth++
			}
			if !u.UpdatedAt.Before(startYear) {
				ov.DeletedUsers.LastYear++
			}
		}
		if u.LastActive != nil && !u.LastActive.Before(activeCutoff) {
			ov.ActiveNow++
		}
	}
	return &ov, nil
}
