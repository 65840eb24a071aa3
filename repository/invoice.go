package repository

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvoiceNotFound = apperror.NotFound("INVOICE_NOT_FOUND", "invoice not found")

type InvoiceFilter struct {
	Status      string
	CustomerID  uint
	WorkOrderID uint
	Search      string
	Page
}

type InvoiceRepository struct{ base }

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{base{db}}
}

func (r *InvoiceRepository) List(ctx context.Context, f InvoiceFilter) ([]models.Invoice, int64, error) {
	q := r.conn(ctx).Model(&models.Invoice{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.WorkOrderID != 0 {
		q = q.Where("work_order_id = ?", f.WorkOrderID)
	}
	if f.Search != "" {
		s := like(f.Search)
		q = q.Where("invoice_number ILIKE ? OR notes ILIKE ?", s, s)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Invoice
	err := paginate(q.Preload("Customer").Order("issue_date DESC, id DESC"), f.Page).Find(&items).Error
	return items, total, err
}

func (r *InvoiceRepository) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.conn(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		Preload("Customer").
		Preload("WorkOrder").
		First(&inv, id).Error
	if err != nil {
		return nil, translate(err, ErrInvoiceNotFound, nil)
	}
	return &inv, nil
}

// GetForUpdate loads the invoice row under SELECT ... FOR UPDATE. Callers must
// be inside a transaction for the lock to outlive the statement.
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, id).Error
	if err != nil {
		return nil, translate(err, ErrInvoiceNotFound, nil)
	}
	return &inv, nil
}

// Create inserts the invoice together with its items.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	return translate(r.conn(ctx).Omit("Customer", "WorkOrder", "Payments").Create(inv).Error, nil, nil)
}

// Update saves the invoice columns and replaces the item set with inv.Items.
func (r *InvoiceRepository) Update(ctx context.Context, inv *models.Invoice) error {
	db := r.conn(ctx)
	if err := db.Omit(clause.Associations).Save(inv).Error; err != nil {
		return translate(err, nil, nil)
	}
	if err := db.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	if len(inv.Items) == 0 {
		return nil
	}
	for i := range inv.Items {
		inv.Items[i].ID = 0
		inv.Items[i].InvoiceID = inv.ID
	}
	return db.Create(&inv.Items).Error
}

// SaveState writes only the status and payment-derived columns.
func (r *InvoiceRepository) SaveState(ctx context.Context, inv *models.Invoice) error {
	return r.conn(ctx).Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
		"paid_amount":    inv.PaidAmount,
		"balance_amount": inv.BalanceAmount,
		"status":         inv.Status,
		"sent_at":        inv.SentAt,
	}).Error
}

func (r *InvoiceRepository) Delete(ctx context.Context, id uint) error {
	db := r.conn(ctx)
	if err := db.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Invoice{}, id)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *InvoiceRepository) CountPayments(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Payment{}).Where("invoice_id = ?", id).Count(&n).Error
	return n, err
}

func (r *InvoiceRepository) LastNumber(ctx context.Context, prefix string) (string, error) {
	return r.lastNumber(ctx, &models.Invoice{}, "invoice_number", prefix)
}

func (r *InvoiceRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []StatusCount
	err := r.conn(ctx).Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// OutstandingBalance sums the open balance of every non-cancelled invoice.
func (r *InvoiceRepository) OutstandingBalance(ctx context.Context) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := r.conn(ctx).Model(&models.Invoice{}).
		Where("status <> ?", models.InvoiceCancelled).
		Select("COALESCE(SUM(balance_amount), 0) AS total").Scan(&row).Error
	return row.Total, err
}
