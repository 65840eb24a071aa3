package repository

import (
	"context"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrPaymentNotFound = apperror.NotFound("PAYMENT_NOT_FOUND", "payment not found")

type PaymentRepository struct{ base }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{base{db}}
}

func (r *PaymentRepository) ListByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	var items []models.Payment
	err := r.conn(ctx).Where("invoice_id = ?", invoiceID).Order("payment_date ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *PaymentRepository) Get(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.conn(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, ErrPaymentNotFound, nil)
	}
	return &p, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return translate(r.conn(ctx).Create(p).Error, nil, nil)
}

func (r *PaymentRepository) Delete(ctx context.Context, id uint) error {
	res := r.conn(ctx).Delete(&models.Payment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// SumSince totals payments dated on or after from.
func (r *PaymentRepository) SumSince(ctx context.Context, from time.Time) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := r.conn(ctx).Model(&models.Payment{}).
		Where("payment_date >= ?", from).
		Select("COALESCE(SUM(amount), 0) AS total").Scan(&row).Error
	return row.Total, err
}
