package audit

import (
	"context"
	"fmt"

	"minerfix-backend/models"

	"gorm.io/gorm"
)

// DBStore keeps entries in the audit_logs table. It always uses its own
// connection so entries survive a rolled back request transaction.
type DBStore struct {
	db  *gorm.DB
	max int
}

func NewDBStore(db *gorm.DB, max int) *DBStore {
	max = clampMax(max)
	return &DBStore{db: db, max: max}
}

func (s *DBStore) Append(ctx context.Context, entry models.AuditLog) error {
	db := s.db.WithContext(ctx)
	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	err := db.Exec(`DELETE FROM audit_logs WHERE id IN (
		SELECT id FROM audit_logs ORDER BY timestamp DESC, id DESC OFFSET ?
	)`, s.max).Error
	if err != nil {
		return fmt.Errorf("prune audit entries: %w", err)
	}
	return nil
}

func (s *DBStore) List(ctx context.Context, f Filter) ([]models.AuditLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Action != "" {
		q = q.Where("UPPER(action) = UPPER(?)", f.Action)
	}
	if f.Resource != "" {
		q = q.Where("LOWER(resource) = LOWER(?)", f.Resource)
	}
	if f.Category != "" {
		q = q.Where("UPPER(category) = UPPER(?)", f.Category)
	}
	if f.Severity != "" {
		q = q.Where("LOWER(severity) = LOWER(?)", f.Severity)
	}
	if f.Status != "" {
		q = q.Where("UPPER(status) = UPPER(?)", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("timestamp >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("timestamp <= ?", f.To)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("user_email ILIKE ? OR resource_id ILIKE ? OR resource ILIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("timestamp DESC, id DESC")
	if f.PageSize > 0 {
		q = q.Offset(f.offset()).Limit(f.PageSize)
	}
	var items []models.AuditLog
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
