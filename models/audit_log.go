package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is the persisted form of an audit entry. Rows are never updated.
type AuditLog struct {
	ID         string         `json:"id" gorm:"primaryKey;size:36"`
	Timestamp  time.Time      `json:"timestamp" gorm:"not null;index"`
	UserID     string         `json:"user_id" gorm:"size:36;index"`
	UserEmail  string         `json:"user_email" gorm:"size:255"`
	Action     string         `json:"action" gorm:"size:50;not null;index"`
	Resource   string         `json:"resource" gorm:"size:50;not null"`
	ResourceID string         `json:"resource_id" gorm:"size:64"`
	Status     string         `json:"status" gorm:"size:10;not null"`
	Severity   string         `json:"severity" gorm:"size:10;not null;index"`
	Category   string         `json:"category" gorm:"size:30;not null;index"`
	IPAddress  string         `json:"ip_address" gorm:"size:45"`
	UserAgent  string         `json:"user_agent" gorm:"size:255"`
	Details    datatypes.JSON `json:"details" gorm:"type:jsonb"`
}
