package repository

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"gorm.io/gorm"
)

var (
	ErrMinerModelNotFound = apperror.NotFound("MINER_MODEL_NOT_FOUND", "miner model not found")
	ErrMinerModelExists   = apperror.Conflict("MINER_MODEL_EXISTS", "a miner model with this brand and model already exists")
)

type MinerModelFilter struct {
	Search string
	Active *bool
	Page
}

type MinerModelRepository struct{ base }

func NewMinerModelRepository(db *gorm.DB) *MinerModelRepository {
	return &MinerModelRepository{base{db}}
}

func (r *MinerModelRepository) List(ctx context.Context, f MinerModelFilter) ([]models.MinerModel, int64, error) {
	q := r.conn(ctx).Model(&models.MinerModel{})
	if f.Search != "" {
		s := like(f.Search)
		q = q.Where("brand ILIKE ? OR model ILIKE ?", s, s)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.MinerModel
	err := paginate(q.Order("brand ASC, model ASC"), f.Page).Find(&items).Error
	return items, total, err
}

func (r *MinerModelRepository) Get(ctx context.Context, id uint) (*models.MinerModel, error) {
	var m models.MinerModel
	if err := r.conn(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err, ErrMinerModelNotFound, nil)
	}
	return &m, nil
}

func (r *MinerModelRepository) Create(ctx context.Context, m *models.MinerModel) error {
	return translate(r.conn(ctx).Create(m).Error, nil, ErrMinerModelExists)
}

// UpdateFields applies a column -> value map built from a partial update.
func (r *MinerModelRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	res := r.conn(ctx).Model(&models.MinerModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error, nil, ErrMinerModelExists)
	}
	if res.RowsAffected == 0 {
		return ErrMinerModelNotFound
	}
	return nil
}

// Delete removes the model; work orders keep existing with a null reference.
func (r *MinerModelRepository) Delete(ctx context.Context, id uint) error {
	res := r.conn(ctx).Delete(&models.MinerModel{}, id)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrMinerModelNotFound
	}
	return nil
}
