package models

import "time"

type Customer struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:150;not null;index"`
	Email       string    `json:"email" gorm:"size:255;index"`
	Phone       string    `json:"phone" gorm:"size:50"`
	Address     string    `json:"address" gorm:"type:text"`
	TaxID       string    `json:"tax_id" gorm:"size:50"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedByID string    `json:"created_by_id" gorm:"size:36"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
