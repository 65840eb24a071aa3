package services

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/utils"
)

var (
	ErrCustomerInUse = apperror.Conflict("CUSTOMER_IN_USE", "customer is referenced by work orders or invoices")
	ErrEmptyPatch    = apperror.Validation("EMPTY_UPDATE", "no fields to update")
)

type CustomerStore interface {
	List(ctx context.Context, f repository.CustomerFilter) ([]models.Customer, int64, error)
	Get(ctx context.Context, id uint) (*models.Customer, error)
	Create(ctx context.Context, c *models.Customer) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
	References(ctx context.Context, id uint) (workOrders, invoices int64, err error)
}

type CustomerInput struct {
	Name    string `json:"name" validate:"required,max=150"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id" validate:"max=50"`
	Notes   string `json:"notes"`
}

type CustomerPatch struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=150"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Address *string `json:"address"`
	TaxID   *string `json:"tax_id" validate:"omitempty,max=50"`
	Notes   *string `json:"notes"`
}

type CustomerService struct {
	repo  CustomerStore
	audit Auditor
}

func NewCustomerService(repo CustomerStore, a Auditor) *CustomerService {
	return &CustomerService{repo: repo, audit: a}
}

func (s *CustomerService) List(ctx context.Context, f repository.CustomerFilter) (List[models.Customer], error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return List[models.Customer]{}, err
	}
	return newList(items, total, f.Page), nil
}

func (s *CustomerService) Get(ctx context.Context, id uint) (*models.Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	utils.NormalizeDTO(&in)
	if in.Name == "" {
		return nil, apperror.Validation("NAME_REQUIRED", "name is required")
	}
	c := &models.Customer{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
		TaxID:       in.TaxID,
		Notes:       in.Notes,
		CreatedByID: audit.ActorFrom(ctx).UserID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionCreate, "customer", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, id uint, p CustomerPatch) (*models.Customer, error) {
	utils.NormalizePtrDTO(&p)
	if p.Name != nil && *p.Name == "" {
		return nil, apperror.Validation("NAME_REQUIRED", "name cannot be empty")
	}
	fields := utils.UpdatesFromPtrDTO(&p, nil)
	if len(fields) == 0 {
		return nil, ErrEmptyPatch
	}
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionUpdate, "customer", id, fields)
	return s.repo.Get(ctx, id)
}

func (s *CustomerService) Delete(ctx context.Context, id uint) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	workOrders, invoices, err := s.repo.References(ctx, id)
	if err != nil {
		return err
	}
	if workOrders > 0 || invoices > 0 {
		return ErrCustomerInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, audit.ActionDelete, "customer", id, map[string]any{"name": c.Name})
	return nil
}
