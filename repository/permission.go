package repository

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"gorm.io/gorm"
)

var (
	ErrPermissionNotFound  = apperror.NotFound("PERMISSION_NOT_FOUND", "permission not found")
	ErrPermissionNameTaken = apperror.Conflict("PERMISSION_NAME_TAKEN", "a permission with this name already exists")
)

type PermissionRepository struct{ base }

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{base{db}}
}

func (r *PermissionRepository) List(ctx context.Context, resource string) ([]models.Permission, error) {
	q := r.conn(ctx).Model(&models.Permission{})
	if resource != "" {
		q = q.Where("resource = ?", resource)
	}
	var items []models.Permission
	err := q.Order("resource ASC, name ASC").Find(&items).Error
	return items, err
}

func (r *PermissionRepository) Get(ctx context.Context, id uint) (*models.Permission, error) {
	var p models.Permission
	if err := r.conn(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, ErrPermissionNotFound, nil)
	}
	return &p, nil
}

// GetMany loads the permissions with the given ids; missing ids are simply absent.
func (r *PermissionRepository) GetMany(ctx context.Context, ids []uint) ([]models.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Permission
	err := r.conn(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *PermissionRepository) Create(ctx context.Context, p *models.Permission) error {
	return translate(r.conn(ctx).Create(p).Error, nil, ErrPermissionNameTaken)
}

func (r *PermissionRepository) Update(ctx context.Context, p *models.Permission) error {
	return translate(r.conn(ctx).Save(p).Error, nil, ErrPermissionNameTaken)
}

// Delete removes the permission and every grant of it.
func (r *PermissionRepository) Delete(ctx context.Context, id uint) error {
	db := r.conn(ctx)
	if err := db.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Permission{}, id)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrPermissionNotFound
	}
	return nil
}
