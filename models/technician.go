package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Technician struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Name           string          `json:"name" gorm:"size:150;not null"`
	Email          string          `json:"email" gorm:"size:255"`
	Phone          string          `json:"phone" gorm:"size:50"`
	Specialization string          `json:"specialization" gorm:"size:150"`
	HourlyRate     decimal.Decimal `json:"hourly_rate" gorm:"type:numeric(12,2);not null;default:0"`
	IsActive       bool            `json:"is_active" gorm:"not null;default:true"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
