package models

import "time"

// Role groups permissions. IsSystem rows are seeded and cannot be renamed,
// deactivated, deleted or have their permission set changed.
type Role struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"size:50;uniqueIndex;not null"`
	DisplayName string       `json:"display_name" gorm:"size:100"`
	Description string       `json:"description" gorm:"type:text"`
	IsSystem    bool         `json:"is_system" gorm:"not null;default:false"`
	IsActive    bool         `json:"is_active" gorm:"not null;default:true"`
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions;joinForeignKey:RoleID;joinReferences:PermissionID"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Permission struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:100;uniqueIndex;not null"` // e.g. "invoices.create"
	DisplayName string    `json:"display_name" gorm:"size:150"`
	Resource    string    `json:"resource" gorm:"size:50;index"`
	Action      string    `json:"action" gorm:"size:50"`
	Description string    `json:"description" gorm:"type:text"`
	IsSystem    bool      `json:"is_system" gorm:"not null;default:false"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RolePermission struct {
	RoleID       uint      `json:"role_id" gorm:"primaryKey"`
	PermissionID uint      `json:"permission_id" gorm:"primaryKey"`
	CreatedAt    time.Time `json:"created_at"`
}
