package services

import (
	"context"
	"time"

	"minerfix-backend/audit"

	"github.com/shopspring/decimal"
)

type DashboardSource interface {
	CountCustomers(ctx context.Context) (int64, error)
	WorkOrdersByStatus(ctx context.Context) (map[string]int64, error)
	InvoicesByStatus(ctx context.Context) (map[string]int64, error)
	OutstandingBalance(ctx context.Context) (decimal.Decimal, error)
	PaymentsSince(ctx context.Context, from time.Time) (decimal.Decimal, error)
}

type DashboardStats struct {
	Customers          int64            `json:"customers"`
	WorkOrdersByStatus map[string]int64 `json:"work_orders_by_status"`
	OpenWorkOrders     int64            `json:"open_work_orders"`
	InvoicesByStatus   map[string]int64 `json:"invoices_by_status"`
	OutstandingBalance decimal.Decimal  `json:"outstanding_balance"`
	PaymentsThisMonth  decimal.Decimal  `json:"payments_this_month"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

type DashboardService struct {
	src   DashboardSource
	audit Auditor
	now   func() time.Time
}

func NewDashboardService(src DashboardSource, a Auditor) *DashboardService {
	return &DashboardService{src: src, audit: a, now: time.Now}
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	st := &DashboardStats{GeneratedAt: now}

	var err error
	if st.Customers, err = s.src.CountCustomers(ctx); err != nil {
		return nil, err
	}
	if st.WorkOrdersByStatus, err = s.src.WorkOrdersByStatus(ctx); err != nil {
		return nil, err
	}
	for status, n := range st.WorkOrdersByStatus {
		if status != "COMPLETED" && status != "CANCELLED" {
			st.OpenWorkOrders += n
		}
	}
	if st.InvoicesByStatus, err = s.src.InvoicesByStatus(ctx); err != nil {
		return nil, err
	}
	if st.OutstandingBalance, err = s.src.OutstandingBalance(ctx); err != nil {
		return nil, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if st.PaymentsThisMonth, err = s.src.PaymentsSince(ctx, monthStart); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Event{
		Action:   audit.ActionView,
		Resource: "dashboard",
		Category: audit.CategoryDataAccess,
	})
	return st, nil
}
