package repository

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"gorm.io/gorm"
)

var ErrWorkOrderNotFound = apperror.NotFound("WORK_ORDER_NOT_FOUND", "work order not found")

type WorkOrderFilter struct {
	Status       string
	Priority     string
	CustomerID   uint
	TechnicianID uint
	Search       string
	Page
}

type WorkOrderRepository struct{ base }

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{base{db}}
}

func (r *WorkOrderRepository) List(ctx context.Context, f WorkOrderFilter) ([]models.WorkOrder, int64, error) {
	q := r.conn(ctx).Model(&models.WorkOrder{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.CustomerID != 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.TechnicianID != 0 {
		q = q.Where("technician_id = ?", f.TechnicianID)
	}
	if f.Search != "" {
		s := like(f.Search)
		q = q.Where("order_number ILIKE ? OR serial_number ILIKE ? OR problem_description ILIKE ?", s, s, s)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.WorkOrder
	err := paginate(q.Preload("Customer").Preload("Technician").Preload("MinerModel").
		Order("received_date DESC, id DESC"), f.Page).Find(&items).Error
	return items, total, err
}

func (r *WorkOrderRepository) Get(ctx context.Context, id uint) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := r.conn(ctx).Preload("Customer").Preload("Technician").Preload("MinerModel").First(&wo, id).Error
	if err != nil {
		return nil, translate(err, ErrWorkOrderNotFound, nil)
	}
	return &wo, nil
}

func (r *WorkOrderRepository) Create(ctx context.Context, wo *models.WorkOrder) error {
	return translate(r.conn(ctx).Omit("Customer", "Technician", "MinerModel").Create(wo).Error, nil, nil)
}

func (r *WorkOrderRepository) Update(ctx context.Context, wo *models.WorkOrder) error {
	return translate(r.conn(ctx).Omit("Customer", "Technician", "MinerModel").Save(wo).Error, nil, nil)
}

func (r *WorkOrderRepository) Delete(ctx context.Context, id uint) error {
	res := r.conn(ctx).Delete(&models.WorkOrder{}, id)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrWorkOrderNotFound
	}
	return nil
}

func (r *WorkOrderRepository) CountInvoices(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Invoice{}).Where("work_order_id = ?", id).Count(&n).Error
	return n, err
}

// LastNumber returns the highest order number starting with prefix.
func (r *WorkOrderRepository) LastNumber(ctx context.Context, prefix string) (string, error) {
	return r.lastNumber(ctx, &models.WorkOrder{}, "order_number", prefix)
}

type StatusCount struct {
	Status string
	Count  int64
}

func (r *WorkOrderRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []StatusCount
	err := r.conn(ctx).Model(&models.WorkOrder{}).
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
