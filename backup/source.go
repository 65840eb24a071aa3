package backup

import (
	"context"

	"gorm.io/gorm"
)

// GormSource reads whole tables through GORM.
type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

func (s *GormSource) Rows(ctx context.Context, table string) ([]map[string]any, error) {
	var rows []map[string]any
	if !s.db.Migrator().HasTable(table) {
		return rows, nil
	}
	err := s.db.WithContext(ctx).Table(table).Find(&rows).Error
	return rows, err
}
