package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatsRepository answers the dashboard aggregates by delegating to the
// aggregate repositories.
type StatsRepository struct {
	customers  *CustomerRepository
	workOrders *WorkOrderRepository
	invoices   *InvoiceRepository
	payments   *PaymentRepository
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{
		customers:  NewCustomerRepository(db),
		workOrders: NewWorkOrderRepository(db),
		invoices:   NewInvoiceRepository(db),
		payments:   NewPaymentRepository(db),
	}
}

func (r *StatsRepository) CountCustomers(ctx context.Context) (int64, error) {
	return r.customers.Count(ctx)
}

func (r *StatsRepository) WorkOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	return r.workOrders.CountByStatus(ctx)
}

func (r *StatsRepository) InvoicesByStatus(ctx context.Context) (map[string]int64, error) {
	return r.invoices.CountByStatus(ctx)
}

func (r *StatsRepository) OutstandingBalance(ctx context.Context) (decimal.Decimal, error) {
	return r.invoices.OutstandingBalance(ctx)
}

func (r *StatsRepository) PaymentsSince(ctx context.Context, from time.Time) (decimal.Decimal, error) {
	return r.payments.SumSince(ctx, from)
}
