package repository

import (
	"context"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRoleNotFound  = apperror.NotFound("ROLE_NOT_FOUND", "role not found")
	ErrRoleNameTaken = apperror.Conflict("ROLE_NAME_TAKEN", "a role with this name already exists")
)

type RoleRepository struct{ base }

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{base{db}}
}

func withPermissions(db *gorm.DB) *gorm.DB {
	return db.Preload("Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("permissions.name ASC") })
}

func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := withPermissions(r.conn(ctx)).Order("is_system DESC, name ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) Get(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := withPermissions(r.conn(ctx)).First(&role, id).Error; err != nil {
		return nil, translate(err, ErrRoleNotFound, nil)
	}
	return &role, nil
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := withPermissions(r.conn(ctx)).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err, ErrRoleNotFound, nil)
	}
	return &role, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	return translate(r.conn(ctx).Omit("Permissions").Create(role).Error, nil, ErrRoleNameTaken)
}

func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	return translate(r.conn(ctx).Omit("Permissions").Save(role).Error, nil, ErrRoleNameTaken)
}

func (r *RoleRepository) Delete(ctx context.Context, id uint) error {
	db := r.conn(ctx)
	if err := db.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Role{}, id)
	if res.Error != nil {
		return translate(res.Error, nil, nil)
	}
	if res.RowsAffected == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) CountUsers(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.User{}).Where("role_id = ?", id).Count(&n).Error
	return n, err
}

// PermissionIDs returns the ids currently granted to the role.
func (r *RoleRepository) PermissionIDs(ctx context.Context, roleID uint) ([]uint, error) {
	var ids []uint
	err := r.conn(ctx).Model(&models.RolePermission{}).Where("role_id = ?", roleID).
		Order("permission_id ASC").Pluck("permission_id", &ids).Error
	return ids, err
}

// PermissionNames returns the active permission codes granted to the role.
func (r *RoleRepository) PermissionNames(ctx context.Context, roleID uint) ([]string, error) {
	var names []string
	err := r.conn(ctx).Table("permissions").
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id = ? AND permissions.is_active = ?", roleID, true).
		Order("permissions.name ASC").
		Pluck("permissions.name", &names).Error
	return names, err
}

// Grant inserts the given links; existing links are left alone.
func (r *RoleRepository) Grant(ctx context.Context, roleID uint, permissionIDs []uint) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	links := make([]models.RolePermission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		links = append(links, models.RolePermission{RoleID: roleID, PermissionID: pid})
	}
	return r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

func (r *RoleRepository) Revoke(ctx context.Context, roleID, permissionID uint) (bool, error) {
	res := r.conn(ctx).Where("role_id = ? AND permission_id = ?", roleID, permissionID).Delete(&models.RolePermission{})
	return res.RowsAffected > 0, res.Error
}

func (r *RoleRepository) RevokeAll(ctx context.Context, roleID uint) error {
	return r.conn(ctx).Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error
}
