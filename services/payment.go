package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/billing"
	"minerfix-backend/metrics"
	"minerfix-backend/models"
	"minerfix-backend/utils"
)

var (
	ErrPaymentExceedsBalance = apperror.Validation("PAYMENT_EXCEEDS_BALANCE", "payment amount exceeds the invoice balance")
	ErrInvalidPaymentAmount  = apperror.Validation("INVALID_PAYMENT_AMOUNT", "payment amount must be greater than zero")
	ErrPaymentOnCancelled    = apperror.Validation("INVOICE_CANCELLED", "payments cannot be applied to a cancelled invoice")
)

type PaymentStore interface {
	ListByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error)
	Get(ctx context.Context, id uint) (*models.Payment, error)
	Create(ctx context.Context, p *models.Payment) error
	Delete(ctx context.Context, id uint) error
}

// InvoiceLocker is the part of the invoice store payments need.
type InvoiceLocker interface {
	Get(ctx context.Context, id uint) (*models.Invoice, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Invoice, error)
	SaveState(ctx context.Context, inv *models.Invoice) error
}

type PaymentInput struct {
	Amount        float64    `json:"amount" validate:"gt=0"`
	PaymentDate   *time.Time `json:"payment_date"`
	PaymentMethod string     `json:"payment_method" validate:"required,oneofci=CASH BANK_TRANSFER CREDIT_CARD CHEQUE OTHER"`
	Reference     string     `json:"reference" validate:"max=100"`
	Notes         string     `json:"notes"`
}

type PaymentService struct {
	repo     PaymentStore
	invoices InvoiceLocker
	tx       Transactor
	audit    Auditor
	now      func() time.Time
}

func NewPaymentService(repo PaymentStore, invoices InvoiceLocker, tx Transactor, a Auditor) *PaymentService {
	return &PaymentService{repo: repo, invoices: invoices, tx: tx, audit: a, now: time.Now}
}

func (s *PaymentService) ListByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	if _, err := s.invoices.Get(ctx, invoiceID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByInvoice(ctx, invoiceID)
	if items == nil {
		items = []models.Payment{}
	}
	return items, err
}

func paymentError(err error) error {
	switch {
	case errors.Is(err, billing.ErrExceedsBalance):
		return ErrPaymentExceedsBalance.Wrap(err)
	case errors.Is(err, billing.ErrNonPositiveAmount):
		return ErrInvalidPaymentAmount.Wrap(err)
	case errors.Is(err, billing.ErrInvoiceCancelled):
		return ErrPaymentOnCancelled.Wrap(err)
	}
	return err
}

// Create records a payment and rolls it into the invoice in one transaction.
// The invoice row stays locked from the balance check until commit, so two
// concurrent payments cannot both pass the check.
func (s *PaymentService) Create(ctx context.Context, invoiceID uint, in PaymentInput) (*models.Payment, *models.Invoice, error) {
	amount := utils.Money(in.Amount)
	method := models.PaymentMethod(strings.ToUpper(strings.TrimSpace(in.PaymentMethod)))

	var payment *models.Payment
	var inv *models.Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		now := s.now()
		next, err := billing.ApplyPayment(billing.StateOf(inv), amount, now)
		if err != nil {
			return paymentError(err)
		}

		paidAt := now
		if in.PaymentDate != nil {
			paidAt = *in.PaymentDate
		}
		payment = &models.Payment{
			InvoiceID:     inv.ID,
			Amount:        amount,
			PaymentDate:   paidAt,
			PaymentMethod: method,
			Reference:     strings.TrimSpace(in.Reference),
			Notes:         strings.TrimSpace(in.Notes),
			CreatedByID:   audit.ActorFrom(ctx).UserID,
		}
		if err := s.repo.Create(ctx, payment); err != nil {
			return err
		}
		next.Apply(inv)
		return s.invoices.SaveState(ctx, inv)
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindValidation {
			metrics.PaymentRejected()
			s.audit.Log(ctx, audit.Event{
				Action:     audit.ActionCreate,
				Resource:   "payment",
				ResourceID: idString(invoiceID),
				Status:     audit.StatusFailed,
				Category:   audit.CategoryDataModification,
				Details:    map[string]any{"invoice_id": invoiceID, "amount": amount, "reason": err.Error()},
			})
		}
		return nil, nil, err
	}

	metrics.PaymentApplied()
	recordChange(ctx, s.audit, audit.ActionCreate, "payment", payment.ID, map[string]any{
		"invoice_id":     inv.ID,
		"invoice_number": inv.InvoiceNumber,
		"amount":         payment.Amount,
		"status":         inv.Status,
	})
	return payment, inv, nil
}

// Delete removes a payment and takes its amount back off the invoice.
func (s *PaymentService) Delete(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv *models.Invoice
	var payment *models.Payment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		inv, err = s.invoices.GetForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == models.InvoiceCancelled {
			return ErrInvoiceCancelled
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		billing.ReversePayment(billing.StateOf(inv), payment.Amount, s.now()).Apply(inv)
		return s.invoices.SaveState(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	metrics.PaymentReversed()
	recordChange(ctx, s.audit, audit.ActionDelete, "payment", id, map[string]any{
		"invoice_id": inv.ID,
		"amount":     payment.Amount,
		"status":     inv.Status,
	})
	return inv, nil
}
