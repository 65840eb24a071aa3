package models

import "time"

// MinerModel is reference data describing a supported mining rig.
type MinerModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Brand     string    `json:"brand" gorm:"size:100;not null;uniqueIndex:idx_miner_models_brand_model"`
	Model     string    `json:"model" gorm:"size:100;not null;uniqueIndex:idx_miner_models_brand_model"`
	HashRate  string    `json:"hash_rate" gorm:"size:50"` // e.g. "140 TH/s"
	Power     int       `json:"power"`                    // watts
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
