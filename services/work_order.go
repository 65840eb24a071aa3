package services

import (
	"context"
	"strings"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/utils"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransition = apperror.Validation("INVALID_STATUS_TRANSITION", "status transition is not allowed")
	ErrWorkOrderInvoiced = apperror.Conflict("WORK_ORDER_INVOICED", "work order is referenced by an invoice")
	ErrWorkOrderClosed   = apperror.Validation("WORK_ORDER_CLOSED", "completed or cancelled work orders cannot be edited")
)

type WorkOrderStore interface {
	List(ctx context.Context, f repository.WorkOrderFilter) ([]models.WorkOrder, int64, error)
	Get(ctx context.Context, id uint) (*models.WorkOrder, error)
	Create(ctx context.Context, wo *models.WorkOrder) error
	Update(ctx context.Context, wo *models.WorkOrder) error
	Delete(ctx context.Context, id uint) error
	CountInvoices(ctx context.Context, id uint) (int64, error)
	LastNumber(ctx context.Context, prefix string) (string, error)
}

type CustomerGetter interface {
	Get(ctx context.Context, id uint) (*models.Customer, error)
}

type TechnicianGetter interface {
	Get(ctx context.Context, id uint) (*models.Technician, error)
}

type MinerModelGetter interface {
	Get(ctx context.Context, id uint) (*models.MinerModel, error)
}

type WorkOrderInput struct {
	CustomerID         uint       `json:"customer_id" validate:"required"`
	TechnicianID       *uint      `json:"technician_id"`
	MinerModelID       *uint      `json:"miner_model_id"`
	SerialNumber       string     `json:"serial_number" validate:"max=100"`
	ProblemDescription string     `json:"problem_description" validate:"required"`
	Diagnosis          string     `json:"diagnosis"`
	Notes              string     `json:"notes"`
	Priority           string     `json:"priority" validate:"omitempty,oneofci=LOW MEDIUM HIGH URGENT"`
	EstimatedCost      float64    `json:"estimated_cost" validate:"gte=0"`
	ReceivedDate       *time.Time `json:"received_date"`
}

// WorkOrderPatch updates the editable fields. A zero TechnicianID or
// MinerModelID clears the reference.
type WorkOrderPatch struct {
	TechnicianID       *uint    `json:"technician_id"`
	MinerModelID       *uint    `json:"miner_model_id"`
	SerialNumber       *string  `json:"serial_number" validate:"omitempty,max=100"`
	ProblemDescription *string  `json:"problem_description" validate:"omitempty,min=1"`
	Diagnosis          *string  `json:"diagnosis"`
	Notes              *string  `json:"notes"`
	Priority           *string  `json:"priority" validate:"omitempty,oneofci=LOW MEDIUM HIGH URGENT"`
	EstimatedCost      *float64 `json:"estimated_cost" validate:"omitempty,gte=0"`
	ActualCost         *float64 `json:"actual_cost" validate:"omitempty,gte=0"`
}

type StatusChange struct {
	Status        string     `json:"status" validate:"required"`
	CompletedDate *time.Time `json:"completed_date"`
	Notes         *string    `json:"notes"`
}

type WorkOrderService struct {
	repo        WorkOrderStore
	customers   CustomerGetter
	technicians TechnicianGetter
	minerModels MinerModelGetter
	audit       Auditor
	now         func() time.Time
}

func NewWorkOrderService(repo WorkOrderStore, customers CustomerGetter, technicians TechnicianGetter, minerModels MinerModelGetter, a Auditor) *WorkOrderService {
	return &WorkOrderService{
		repo:        repo,
		customers:   customers,
		technicians: technicians,
		minerModels: minerModels,
		audit:       a,
		now:         time.Now,
	}
}

func (s *WorkOrderService) List(ctx context.Context, f repository.WorkOrderFilter) (List[models.WorkOrder], error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return List[models.WorkOrder]{}, err
	}
	return newList(items, total, f.Page), nil
}

func (s *WorkOrderService) Get(ctx context.Context, id uint) (*models.WorkOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *WorkOrderService) checkRefs(ctx context.Context, technicianID, minerModelID *uint) error {
	if technicianID != nil && *technicianID != 0 {
		t, err := s.technicians.Get(ctx, *technicianID)
		if err != nil {
			return err
		}
		if !t.IsActive {
			return apperror.Validation("TECHNICIAN_INACTIVE", "technician is not active")
		}
	}
	if minerModelID != nil && *minerModelID != 0 {
		if _, err := s.minerModels.Get(ctx, *minerModelID); err != nil {
			return err
		}
	}
	return nil
}

func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}

func (s *WorkOrderService) Create(ctx context.Context, in WorkOrderInput) (*models.WorkOrder, error) {
	utils.NormalizeDTO(&in)
	if in.ProblemDescription == "" {
		return nil, apperror.Validation("PROBLEM_REQUIRED", "problem description is required")
	}
	if in.EstimatedCost < 0 {
		return nil, apperror.Validation("INVALID_COST", "estimated cost cannot be negative")
	}
	if _, err := s.customers.Get(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, in.TechnicianID, in.MinerModelID); err != nil {
		return nil, err
	}

	now := s.now()
	number, err := nextNumber(ctx, "WO", now, s.repo.LastNumber)
	if err != nil {
		return nil, err
	}
	priority := models.WorkOrderPriority(strings.ToUpper(in.Priority))
	if priority == "" {
		priority = models.PriorityMedium
	}
	received := now
	if in.ReceivedDate != nil {
		received = *in.ReceivedDate
	}

	wo := &models.WorkOrder{
		OrderNumber:        number,
		CustomerID:         in.CustomerID,
		TechnicianID:       nonZero(in.TechnicianID),
		MinerModelID:       nonZero(in.MinerModelID),
		SerialNumber:       in.SerialNumber,
		ProblemDescription: in.ProblemDescription,
		Diagnosis:          in.Diagnosis,
		Notes:              in.Notes,
		Status:             models.WorkOrderPending,
		Priority:           priority,
		EstimatedCost:      utils.Money(in.EstimatedCost),
		ReceivedDate:       received,
		CreatedByID:        audit.ActorFrom(ctx).UserID,
	}
	if err := s.repo.Create(ctx, wo); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionCreate, "work_order", wo.ID, map[string]any{"order_number": wo.OrderNumber})
	return wo, nil
}

func (s *WorkOrderService) Update(ctx context.Context, id uint, p WorkOrderPatch) (*models.WorkOrder, error) {
	utils.NormalizePtrDTO(&p)
	wo, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Status == models.WorkOrderCancelled {
		return nil, ErrWorkOrderClosed
	}
	if err := s.checkRefs(ctx, p.TechnicianID, p.MinerModelID); err != nil {
		return nil, err
	}

	if p.TechnicianID != nil {
		wo.TechnicianID = nonZero(p.TechnicianID)
		wo.Technician = nil
	}
	if p.MinerModelID != nil {
		wo.MinerModelID = nonZero(p.MinerModelID)
		wo.MinerModel = nil
	}
	if p.SerialNumber != nil {
		wo.SerialNumber = *p.SerialNumber
	}
	if p.ProblemDescription != nil {
		if *p.ProblemDescription == "" {
			return nil, apperror.Validation("PROBLEM_REQUIRED", "problem description cannot be empty")
		}
		wo.ProblemDescription = *p.ProblemDescription
	}
	if p.Diagnosis != nil {
		wo.Diagnosis = *p.Diagnosis
	}
	if p.Notes != nil {
		wo.Notes = *p.Notes
	}
	if p.Priority != nil {
		wo.Priority = models.WorkOrderPriority(strings.ToUpper(*p.Priority))
	}
	if p.EstimatedCost != nil {
		wo.EstimatedCost = utils.Money(*p.EstimatedCost)
	}
	if p.ActualCost != nil {
		wo.ActualCost = decimal.NewNullDecimal(utils.Money(*p.ActualCost))
	}

	if err := s.repo.Update(ctx, wo); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionUpdate, "work_order", wo.ID, map[string]any{"order_number": wo.OrderNumber})
	return s.repo.Get(ctx, id)
}

// ChangeStatus moves the order through the transition table. Completing an
// order stamps CompletedDate with the supplied date or now.
func (s *WorkOrderService) ChangeStatus(ctx context.Context, id uint, in StatusChange) (*models.WorkOrder, error) {
	next := models.WorkOrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !next.Valid() {
		return nil, apperror.Validation("INVALID_STATUS", "unknown work order status")
	}
	wo, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := wo.Status
	if !from.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	wo.Status = next
	if next == models.WorkOrderCompleted {
		done := s.now()
		if in.CompletedDate != nil {
			done = *in.CompletedDate
		}
		wo.CompletedDate = &done
	}
	if in.Notes != nil {
		wo.Notes = strings.TrimSpace(*in.Notes)
	}
	wo.Customer, wo.Technician, wo.MinerModel = nil, nil, nil

	if err := s.repo.Update(ctx, wo); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionUpdate, "work_order", wo.ID, map[string]any{
		"order_number": wo.OrderNumber,
		"from":         from,
		"to":           next,
	})
	return s.repo.Get(ctx, id)
}

func (s *WorkOrderService) Delete(ctx context.Context, id uint) error {
	wo, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountInvoices(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrWorkOrderInvoiced
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, audit.ActionDelete, "work_order", id, map[string]any{"order_number": wo.OrderNumber})
	return nil
}
