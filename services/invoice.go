package services

import (
	"context"
	"strings"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/billing"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/utils"

	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceCancelled   = apperror.Validation("INVOICE_CANCELLED", "invoice is cancelled")
	ErrInvoiceHasPayments = apperror.Conflict("INVOICE_HAS_PAYMENTS", "invoice has payments")
	ErrTotalBelowPaid     = apperror.Validation("TOTAL_BELOW_PAID", "invoice total cannot drop below the amount already paid")
	ErrInvoiceNotDraft    = apperror.Validation("INVOICE_NOT_DRAFT", "only draft invoices can be sent")
	ErrItemsRequired      = apperror.Validation("ITEMS_REQUIRED", "an invoice needs at least one item")
	ErrDueBeforeIssue     = apperror.Validation("INVALID_DUE_DATE", "due date cannot be before the issue date")
	ErrWorkOrderCustomer  = apperror.Validation("WORK_ORDER_CUSTOMER_MISMATCH", "work order belongs to another customer")
)

type InvoiceStore interface {
	List(ctx context.Context, f repository.InvoiceFilter) ([]models.Invoice, int64, error)
	Get(ctx context.Context, id uint) (*models.Invoice, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Invoice, error)
	Create(ctx context.Context, inv *models.Invoice) error
	Update(ctx context.Context, inv *models.Invoice) error
	SaveState(ctx context.Context, inv *models.Invoice) error
	Delete(ctx context.Context, id uint) error
	CountPayments(ctx context.Context, id uint) (int64, error)
	LastNumber(ctx context.Context, prefix string) (string, error)
}

type WorkOrderGetter interface {
	Get(ctx context.Context, id uint) (*models.WorkOrder, error)
}

type InvoiceItemInput struct {
	Description string  `json:"description" validate:"required,max=255"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Type        string  `json:"type" validate:"omitempty,oneofci=SERVICE PARTS"`
}

type InvoiceInput struct {
	CustomerID     uint               `json:"customer_id" validate:"required"`
	WorkOrderID    *uint              `json:"work_order_id"`
	IssueDate      *time.Time         `json:"issue_date"`
	DueDate        *time.Time         `json:"due_date"`
	TaxRate        *float64           `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	DiscountAmount float64            `json:"discount_amount" validate:"gte=0"`
	Notes          string             `json:"notes"`
	Items          []InvoiceItemInput `json:"items" validate:"required,min=1,dive"`
}

// InvoicePatch leaves nil fields untouched; a non-nil Items replaces the item set.
type InvoicePatch struct {
	IssueDate      *time.Time         `json:"issue_date"`
	DueDate        *time.Time         `json:"due_date"`
	TaxRate        *float64           `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	DiscountAmount *float64           `json:"discount_amount" validate:"omitempty,gte=0"`
	Notes          *string            `json:"notes"`
	Items          []InvoiceItemInput `json:"items" validate:"omitempty,min=1,dive"`
}

type InvoiceDefaults struct {
	TaxRate         decimal.Decimal
	PaymentTermDays int
}

type InvoiceService struct {
	repo       InvoiceStore
	customers  CustomerGetter
	workOrders WorkOrderGetter
	tx         Transactor
	audit      Auditor
	defaults   InvoiceDefaults
	now        func() time.Time
}

func NewInvoiceService(repo InvoiceStore, customers CustomerGetter, workOrders WorkOrderGetter, tx Transactor, a Auditor, defaults InvoiceDefaults) *InvoiceService {
	return &InvoiceService{
		repo:       repo,
		customers:  customers,
		workOrders: workOrders,
		tx:         tx,
		audit:      a,
		defaults:   defaults,
		now:        time.Now,
	}
}

func toItems(in []InvoiceItemInput) ([]models.InvoiceItem, error) {
	items := make([]models.InvoiceItem, 0, len(in))
	for _, it := range in {
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			return nil, apperror.Validation("ITEM_DESCRIPTION_REQUIRED", "item description is required")
		}
		if it.Quantity <= 0 {
			return nil, apperror.Validation("INVALID_QUANTITY", "item quantity must be greater than zero")
		}
		if q := decimal.NewFromFloat(it.Quantity); !q.Equal(q.Round(2)) {
			return nil, apperror.Validation("INVALID_QUANTITY", "item quantity allows at most two decimal places")
		}
		if it.UnitPrice < 0 {
			return nil, apperror.Validation("INVALID_UNIT_PRICE", "item unit price cannot be negative")
		}
		typ := models.ItemType(strings.ToUpper(it.Type))
		if typ == "" {
			typ = models.ItemService
		}
		items = append(items, models.InvoiceItem{
			Description: desc,
			Quantity:    utils.Money(it.Quantity),
			UnitPrice:   utils.Money(it.UnitPrice),
			Type:        typ,
		})
	}
	return items, nil
}

func (s *InvoiceService) List(ctx context.Context, f repository.InvoiceFilter) (List[models.Invoice], error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return List[models.Invoice]{}, err
	}
	return newList(items, total, f.Page), nil
}

func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	if len(in.Items) == 0 {
		return nil, ErrItemsRequired
	}
	items, err := toItems(in.Items)
	if err != nil {
		return nil, err
	}
	if in.DiscountAmount < 0 {
		return nil, apperror.Validation("INVALID_DISCOUNT", "discount cannot be negative")
	}
	if _, err := s.customers.Get(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	if id := nonZero(in.WorkOrderID); id != nil {
		wo, err := s.workOrders.Get(ctx, *id)
		if err != nil {
			return nil, err
		}
		if wo.CustomerID != in.CustomerID {
			return nil, ErrWorkOrderCustomer
		}
	}

	now := s.now()
	issue := now
	if in.IssueDate != nil {
		issue = *in.IssueDate
	}
	due := issue.AddDate(0, 0, s.defaults.PaymentTermDays)
	if in.DueDate != nil {
		due = *in.DueDate
	}
	if due.Before(issue) {
		return nil, ErrDueBeforeIssue
	}
	taxRate := s.defaults.TaxRate
	if in.TaxRate != nil {
		taxRate = utils.Money(*in.TaxRate)
	}

	number, err := nextNumber(ctx, "INV", now, s.repo.LastNumber)
	if err != nil {
		return nil, err
	}
	inv := &models.Invoice{
		InvoiceNumber:  number,
		CustomerID:     in.CustomerID,
		WorkOrderID:    nonZero(in.WorkOrderID),
		IssueDate:      issue,
		DueDate:        due,
		Items:          items,
		TaxRate:        taxRate,
		DiscountAmount: utils.Money(in.DiscountAmount),
		PaidAmount:     decimal.Zero,
		Status:         models.InvoiceDraft,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedByID:    audit.ActorFrom(ctx).UserID,
	}
	billing.Recalculate(inv, now)

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionCreate, "invoice", inv.ID, map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"total_amount":   inv.TotalAmount,
	})
	return inv, nil
}

// Update edits an open invoice and recomputes its totals, balance and status
// under a row lock.
func (s *InvoiceService) Update(ctx context.Context, id uint, p InvoicePatch) (*models.Invoice, error) {
	var out *models.Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		inv, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == models.InvoiceCancelled {
			return ErrInvoiceCancelled
		}

		if p.IssueDate != nil {
			inv.IssueDate = *p.IssueDate
		}
		if p.DueDate != nil {
			inv.DueDate = *p.DueDate
		}
		if inv.DueDate.Before(inv.IssueDate) {
			return ErrDueBeforeIssue
		}
		if p.TaxRate != nil {
			inv.TaxRate = utils.Money(*p.TaxRate)
		}
		if p.DiscountAmount != nil {
			if *p.DiscountAmount < 0 {
				return apperror.Validation("INVALID_DISCOUNT", "discount cannot be negative")
			}
			inv.DiscountAmount = utils.Money(*p.DiscountAmount)
		}
		if p.Notes != nil {
			inv.Notes = strings.TrimSpace(*p.Notes)
		}
		if p.Items != nil {
			if len(p.Items) == 0 {
				return ErrItemsRequired
			}
			items, err := toItems(p.Items)
			if err != nil {
				return err
			}
			inv.Items = items
		}

		billing.Recalculate(inv, s.now())
		if inv.TotalAmount.LessThan(inv.PaidAmount) {
			return ErrTotalBelowPaid
		}
		if err := s.repo.Update(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionUpdate, "invoice", out.ID, map[string]any{
		"invoice_number": out.InvoiceNumber,
		"total_amount":   out.TotalAmount,
		"status":         out.Status,
	})
	return s.repo.Get(ctx, id)
}

// Send marks a draft invoice as sent, then lets the resolver pick the
// effective status (a zero total is immediately PAID, a past due date OVERDUE).
func (s *InvoiceService) Send(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.transition(ctx, id, "send", func(inv *models.Invoice) error {
		if inv.Status != models.InvoiceDraft {
			return ErrInvoiceNotDraft
		}
		now := s.now()
		inv.Status = models.InvoiceSent
		inv.SentAt = &now
		st := billing.StateOf(inv)
		st.Status = billing.ResolveStatus(st.DueDate, st.Total, st.Paid, models.InvoiceSent, now)
		st.Apply(inv)
		return nil
	})
}

// Cancel is absorbing: a cancelled invoice never changes again.
func (s *InvoiceService) Cancel(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.transition(ctx, id, "cancel", func(inv *models.Invoice) error {
		if inv.Status == models.InvoiceCancelled {
			return ErrInvoiceCancelled
		}
		if inv.PaidAmount.IsPositive() {
			return ErrInvoiceHasPayments
		}
		inv.Status = models.InvoiceCancelled
		return nil
	})
}

func (s *InvoiceService) transition(ctx context.Context, id uint, op string, apply func(inv *models.Invoice) error) (*models.Invoice, error) {
	var from models.InvoiceStatus
	var inv *models.Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = inv.Status
		if err := apply(inv); err != nil {
			return err
		}
		return s.repo.SaveState(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	recordChange(ctx, s.audit, audit.ActionUpdate, "invoice", id, map[string]any{
		"operation":      op,
		"invoice_number": inv.InvoiceNumber,
		"from":           from,
		"to":             inv.Status,
	})
	return s.repo.Get(ctx, id)
}

func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountPayments(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrInvoiceHasPayments
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	recordChange(ctx, s.audit, audit.ActionDelete, "invoice", id, map[string]any{"invoice_number": inv.InvoiceNumber})
	return nil
}
