package repository

import (
	"context"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = apperror.NotFound("USER_NOT_FOUND", "user not found")
	ErrEmailTaken   = apperror.Conflict("EMAIL_TAKEN", "a user with this email already exists")
)

type UserFilter struct {
	Search string
	RoleID uint
	Active *bool
	Page
}

type UserRepository struct{ base }

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{base{db}}
}

func (r *UserRepository) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	q := r.conn(ctx).Model(&models.User{})
	if f.Search != "" {
		s := like(f.Search)
		q = q.Where("name ILIKE ? OR email ILIKE ?", s, s)
	}
	if f.RoleID != 0 {
		q = q.Where("role_id = ?", f.RoleID)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.User
	err := paginate(q.Preload("Role").Order("name ASC"), f.Page).Find(&items).Error
	return items, total, err
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.conn(ctx).Preload("Role").Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err, ErrUserNotFound, nil)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.conn(ctx).Preload("Role").Where("LOWER(email) = LOWER(?)", email).First(&u).Error; err != nil {
		return nil, translate(err, ErrUserNotFound, nil)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return translate(r.conn(ctx).Omit("Role").Create(u).Error, nil, ErrEmailTaken)
}

func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	res := r.conn(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error, nil, ErrEmailTaken)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}
