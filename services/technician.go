package services

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/utils"
)

var ErrTechnicianInUse = apperror.Conflict("TECHNICIAN_IN_USE", "technician is assigned to work orders")

type TechnicianStore interface {
	List(ctx context.Context, f repository.TechnicianFilter) ([]models.Technician, int64, error)
	Get(ctx context.Context, id uint) (*models.Technician, error)
	Create(ctx context.Context, t *models.Technician) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
	CountWorkOrders(ctx context.Context, id uint) (int64, error)
}

type TechnicianInput struct {
	Name           string  `json:"name" validate:"required,max=150"`
	Email          string  `json:"email" validate:"omitempty,email,max=255"`
	Phone          string  `json:"phone" validate:"max=50"`
	Specialization string  `json:"specialization" validate:"max=150"`
	HourlyRate     float64 `json:"hourly_rate" validate:"gte=0"`
	IsActive       *bool   `json:"is_active"`
}

type TechnicianPatch struct {
	Name           *string  `json:"name" validate:"omitempty,min=1,max=150"`
	Email          *string  `json:"email" validate:"omitempty,email,max=255"`
	Phone          *string  `json:"phone" validate:"omitempty,max=50"`
	Specialization *string  `json:"specialization" validate:"omitempty,max=150"`
	HourlyRate     *float64 `json:"hourly_rate" validate:"omitempty,gte=0"`
	IsActive       *bool    `json:"is_active"`
}

type TechnicianService struct {
	repo  TechnicianStore
	audit Auditor
}

func NewTechnicianService(repo TechnicianStore, a Auditor) *TechnicianService {
	return &TechnicianService{repo: repo, audit: a}
}

func (s *TechnicianService) List(ctx context.Context, f repository.TechnicianFilter) (List[models.Technician], error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return List[models.Technician]{}, err
	}
	return newList(items, total, f.Page), nil
}

func (s *TechnicianService) Get(ctx context.Context, id uint) (*models.Technician, error) {
	return s.repo.Get(ctx, id)
}

func (s *TechnicianService) Create(ctx context.Context, in TechnicianInput) (*models.Technician, error) {
	utils.NormalizeDTO(&in)
	if in.Name == "" {
		return nil, apperror.Validation("NAME_REQUIRED", "name is required")
	}
	if in.HourlyRate < 0 {
		return nil, apperror.Validation("INVALID_HOURLY_RATE", "hourly rate cannot be negative")
	}
	t := &models.Technician{
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		Specialization: in.Specialization,
		HourlyRate:     utils.Money(in.HourlyRate),
		IsActive:       in.IsActive == nil || *in.IsActive,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionCreate, "technician", t.ID, map[string]any{"name": t.Name})
	return t, nil
}

func (s *TechnicianService) Update(ctx context.Context, id uint, p TechnicianPatch) (*models.Technician, error) {
	utils.NormalizePtrDTO(&p)
	if p.Name != nil && *p.Name == "" {
		return nil, apperror.Validation("NAME_REQUIRED", "name cannot be empty")
	}
	if p.HourlyRate != nil && *p.HourlyRate < 0 {
		return nil, apperror.Validation("INVALID_HOURLY_RATE", "hourly rate cannot be negative")
	}
	fields := utils.UpdatesFromPtrDTO(&p, nil)
	if len(fields) == 0 {
		return nil, ErrEmptyPatch
	}
	if p.HourlyRate != nil {
		fields["hourly_rate"] = utils.Money(*p.HourlyRate)
	}
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionUpdate, "technician", id, fields)
	return s.repo.Get(ctx, id)
}

func (s *TechnicianService) Delete(ctx context.Context, id uint) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountWorkOrders(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrTechnicianInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, audit.ActionDelete, "technician", id, map[string]any{"name": t.Name})
	return nil
}
