package store

import (
	"context"
	"errors"
	"time"

	"loxodon/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

type CustomerUpdate struct {
	Domain   *string
	Active   *bool
	AutoSync *bool
}

type UserUpdate struct {
	Email  *string
	RoleID *uint
	// ClearRole removes the role reference; RoleID is ignored when set.
	ClearRole bool
	Status    *models.UserStatus
	// Activity timestamps; nil fields are left untouched.
	FirstLogin *time.Time
	LastActive *time.Time
}

type RoleUpdate struct {
	Title       *string
	TenantID    *string
	Description *string
	Permissions *models.StringList
}

// AuditLogFilter narrows audit-log reads. Zero values mean "no filter".
type AuditLogFilter struct {
	TenantID string
	UserID   string
	Start    *time.Time
	End      *time.Time
	Page     int
	Limit    int
}

type RangeCounts struct {
	Last7Days int64 `json:"last7days"`
	LastMonth int64 `json:"lastMonth"`
	LastYear  int64 `json:"lastYear"`
}

type Overview struct {
	ActiveCustomers int64       `json:"activeCustomers"`
	TotalUsers      int64       `json:"totalUsers"`
	NewUsers        RangeCounts `json:"newUsers"`
	DeletedUsers    RangeCounts `json:"deletedUsers"`
	ActiveNow       int64       `json:"activeNow"`
}

// Store is the transactional relational store behind every service. The gorm
// implementation backs production; tests substitute the in-memory one.
type Store interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, tenantID string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	UpdateCustomer(ctx context.Context, tenantID string, upd CustomerUpdate) (*models.Customer, error)
	// DeleteCustomerCascade removes users, then roles, then the customer as
	// one transaction.
	DeleteCustomerCascade(ctx context.Context, tenantID string) error

	ListUsersByTenant(ctx context.Context, tenantID string) ([]models.User, error)
	GetUser(ctx context.Context, oid string) (*models.User, error)
	UpdateUser(ctx context.Context, oid string, upd UserUpdate) (*models.User, error)
	CreateUsersSkipDuplicates(ctx context.Context, users []models.User) (int64, error)
	// MarkMissingUsersDeleted soft-deletes every user of the tenant whose oid
	// is not in presentOIDs. An empty presentOIDs marks the whole tenant.
	MarkMissingUsersDeleted(ctx context.Context, tenantID string, presentOIDs []string) (int64, error)

	ListRoles(ctx context.Context) ([]models.Role, error)
	ListRolesByTenant(ctx context.Context, tenantID string) ([]models.Role, error)
	GetRole(ctx context.Context, id uint) (*models.Role, error)
	CreateRole(ctx context.Context, r *models.Role) error
	CreateRolesSkipDuplicates(ctx context.Context, roles []models.Role) error
	UpdateRole(ctx context.Context, id uint, upd RoleUpdate) (*models.Role, error)
	// ReplacePermissions rewrites the permission lists of several roles
	// atomically; either every role is updated or none is.
	ReplacePermissions(ctx context.Context, perms map[uint]models.StringList) error

	ListAuditLogs(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, int64, error)
	AuditLogsByDateRange(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, error)
	GetAuditLog(ctx context.Context, id int64) (*models.AuditLog, error)
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error

	Overview(ctx context.Context, now time.Time) (*Overview, error)
}
