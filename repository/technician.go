package repository

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"gorm.io/gorm"
)

var ErrTechnicianNotFound = apperror.NotFound("TECHNICIAN_NOT_FOUND", "technician not found")

type TechnicianFilter struct {
	Search string
	Active *bool
	Page
}

type TechnicianRepository struct{ base }

func NewTechnicianRepository(db *gorm.DB) *TechnicianRepository {
	return &TechnicianRepository{base{db}}
}

func (r *TechnicianRepository) List(ctx context.Context, f TechnicianFilter) ([]models.Technician, int64, error) {
	q := r.conn(ctx).Model(&models.Technician{})
	if f.Search != "" {
		s := like(f.Search)
		q = q.Where("name ILIKE ? OR email ILIKE ? OR specialization ILIKE ?", s, s, s)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Technician
	err := paginate(q.Order("name ASC, id ASC"), f.Page).Find(&items).Error
	return items, total, err
}

func (r *TechnicianRepository) Get(ctx context.Context, id uint) (*models.Technician, error) {
	var t models.Technician
	if err := r.conn(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err, ErrTechnicianNotFound, nil)
	}
	return &t, nil
}

func (r *TechnicianRepository) Create(ctx context.Context, t *models.Technician) error {
	return translate(r.conn(ctx).Create(t).Error, nil, nil)
}

// UpdateFields applies a column -> value map built from a partial update.
func (r *TechnicianRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	res := r.conn(ctx).Model(&models.Technician{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrTechnicianNotFound
	}
	return nil
}

func (r *TechnicianRepository) Delete(ctx context.Context, id uint) error {
	res := r.conn(ctx).Delete(&models.Technician{}, id)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrTechnicianNotFound
	}
	return nil
}

func (r *TechnicianRepository) CountWorkOrders(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.WorkOrder{}).Where("technician_id = ?", id).Count(&n).Error
	return n, err
}
