package models

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusDeleted  UserStatus = "deleted"
)

// Customer is a tenant. Users and Roles belong to exactly one Customer and
// are removed when the Customer is hard-deleted.
type Customer struct {
	TenantID  string    `gorm:"primaryKey;size:64;column:tenant_id" json:"tenantId"`
	Domain    string    `gorm:"uniqueIndex;not null" json:"domain"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	AutoSync  bool      `gorm:"not null;default:false" json:"autoSync"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User mirrors a directory account. The oid is the identity provider's stable
// subject id. status=deleted is a soft-delete marker; rows only disappear when
// the owning customer is deleted.
type User struct {
	OID        string     `gorm:"primaryKey;size:64;column:oid" json:"oid"`
	Email      string     `gorm:"not null" json:"email"`
	TenantID   string     `gorm:"index;not null;column:tenant_id" json:"tenantId"`
	RoleID     *uint      `json:"roleId,omitempty"`
	Role       *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Status     UserStatus `gorm:"size:16;not null;default:active" json:"status"`
	FirstLogin *time.Time `json:"firstLogin,omitempty"`
	LastActive *time.Time `json:"lastActive,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type Role struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string     `gorm:"not null;uniqueIndex:idx_roles_tenant_title" json:"title"`
	TenantID    string     `gorm:"not null;uniqueIndex:idx_roles_tenant_title;column:tenant_id" json:"tenantID"`
	Description *string    `json:"description"`
	Permissions StringList `gorm:"type:jsonb;not null;default:'[]'" json:"permissions"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AuditLog rows are append-only. They reference tenant and user loosely so the
// trail survives user soft-deletion.
type AuditLog struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID    string    `gorm:"index;not null;column:tenant_id" json:"tenantId"`
	UserID      string    `gorm:"index;not null" json:"userId"`
	Action      string    `gorm:"not null" json:"action"`
	Description string    `gorm:"not null" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
