package services

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/utils"
)

type MinerModelStore interface {
	List(ctx context.Context, f repository.MinerModelFilter) ([]models.MinerModel, int64, error)
	Get(ctx context.Context, id uint) (*models.MinerModel, error)
	Create(ctx context.Context, m *models.MinerModel) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
}

type MinerModelInput struct {
	Brand    string `json:"brand" validate:"required,max=100"`
	Model    string `json:"model" validate:"required,max=100"`
	HashRate string `json:"hash_rate" validate:"max=50"`
	Power    int    `json:"power" validate:"gte=0"`
	IsActive *bool  `json:"is_active"`
}

type MinerModelPatch struct {
	Brand    *string `json:"brand" validate:"omitempty,min=1,max=100"`
	Model    *string `json:"model" validate:"omitempty,min=1,max=100"`
	HashRate *string `json:"hash_rate" validate:"omitempty,max=50"`
	Power    *int    `json:"power" validate:"omitempty,gte=0"`
	IsActive *bool   `json:"is_active"`
}

type MinerModelService struct {
	repo  MinerModelStore
	audit Auditor
}

func NewMinerModelService(repo MinerModelStore, a Auditor) *MinerModelService {
	return &MinerModelService{repo: repo, audit: a}
}

func (s *MinerModelService) List(ctx context.Context, f repository.MinerModelFilter) (List[models.MinerModel], error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return List[models.MinerModel]{}, err
	}
	return newList(items, total, f.Page), nil
}

func (s *MinerModelService) Get(ctx context.Context, id uint) (*models.MinerModel, error) {
	return s.repo.Get(ctx, id)
}

func (s *MinerModelService) Create(ctx context.Context, in MinerModelInput) (*models.MinerModel, error) {
	utils.NormalizeDTO(&in)
	if in.Brand == "" || in.Model == "" {
		return nil, apperror.Validation("BRAND_MODEL_REQUIRED", "brand and model are required")
	}
	if in.Power < 0 {
		return nil, apperror.Validation("INVALID_POWER", "power cannot be negative")
	}
	m := &models.MinerModel{
		Brand:    in.Brand,
		Model:    in.Model,
		HashRate: in.HashRate,
		Power:    in.Power,
		IsActive: in.IsActive == nil || *in.IsActive,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionCreate, "miner_model", m.ID, map[string]any{"brand": m.Brand, "model": m.Model})
	return m, nil
}

func (s *MinerModelService) Update(ctx context.Context, id uint, p MinerModelPatch) (*models.MinerModel, error) {
	utils.NormalizePtrDTO(&p)
	if (p.Brand != nil && *p.Brand == "") || (p.Model != nil && *p.Model == "") {
		return nil, apperror.Validation("BRAND_MODEL_REQUIRED", "brand and model cannot be empty")
	}
	fields := utils.UpdatesFromPtrDTO(&p, nil)
	if len(fields) == 0 {
		return nil, ErrEmptyPatch
	}
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionUpdate, "miner_model", id, fields)
	return s.repo.Get(ctx, id)
}

// Delete removes the model; work orders that referenced it keep a null reference.
func (s *MinerModelService) Delete(ctx context.Context, id uint) error {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, audit.ActionDelete, "miner_model", id, map[string]any{"brand": m.Brand, "model": m.Model})
	return nil
}
