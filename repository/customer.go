package repository

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"gorm.io/gorm"
)

var ErrCustomerNotFound = apperror.NotFound("CUSTOMER_NOT_FOUND", "customer not found")

type CustomerFilter struct {
	Search string
	Page
}

type CustomerRepository struct{ base }

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{base{db}}
}

func (r *CustomerRepository) List(ctx context.Context, f CustomerFilter) ([]models.Customer, int64, error) {
	q := r.conn(ctx).Model(&models.Customer{})
	if f.Search != "" {
		s := like(f.Search)
		q = q.Where("name ILIKE ? OR email ILIKE ? OR phone ILIKE ? OR tax_id ILIKE ?", s, s, s, s)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Customer
	err := paginate(q.Order("name ASC, id ASC"), f.Page).Find(&items).Error
	return items, total, err
}

func (r *CustomerRepository) Get(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := r.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err, ErrCustomerNotFound, nil)
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	return translate(r.conn(ctx).Create(c).Error, nil, nil)
}

// UpdateFields applies a column -> value map built from a partial update.
func (r *CustomerRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	res := r.conn(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id uint) error {
	res := r.conn(ctx).Delete(&models.Customer{}, id)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Customer{}).Count(&n).Error
	return n, err
}

// References counts the work orders and invoices pointing at the customer.
func (r *CustomerRepository) References(ctx context.Context, id uint) (workOrders, invoices int64, err error) {
	if err = r.conn(ctx).Model(&models.WorkOrder{}).Where("customer_id = ?", id).Count(&workOrders).Error; err != nil {
		return
	}
	err = r.conn(ctx).Model(&models.Invoice{}).Where("customer_id = ?", id).Count(&invoices).Error
	return
}
