package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/repository"
)

var (
	ErrInvalidCredentials = apperror.Unauthenticated("INVALID_CREDENTIALS", "invalid email or password")
	ErrUserInactive       = apperror.Permission("USER_INACTIVE", "user account is deactivated")
	ErrPasswordMismatch   = apperror.Validation("PASSWORD_MISMATCH", "passwords do not match")
	ErrSelfModification   = apperror.Validation("SELF_MODIFICATION", "you cannot change your own role or status")
	ErrRoleInactive       = apperror.Validation("ROLE_INACTIVE", "role is not active")
)

type UserStore interface {
	List(ctx context.Context, f repository.UserFilter) ([]models.User, int64, error)
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

type RoleReader interface {
	Get(ctx context.Context, id uint) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	PermissionNames(ctx context.Context, roleID uint) ([]string, error)
}

type RegisterInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is an authenticated user with the permission codes of their role.
type Session struct {
	User        *models.User `json:"user"`
	Permissions []string     `json:"permissions"`
}

type UserService struct {
	users UserStore
	roles RoleReader
	audit Auditor
	now   func() time.Time
}

func NewUserService(users UserStore, roles RoleReader, a Auditor) *UserService {
	return &UserService{users: users, roles: roles, audit: a, now: time.Now}
}

func (s *UserService) authEvent(ctx context.Context, action string, status audit.Status, u *models.User, email string, details map[string]any) {
	ev := audit.Event{
		Action:   action,
		Resource: "auth",
		Status:   status,
		Category: audit.CategoryAuthentication,
		Details:  details,
		Actor:    audit.Actor{Email: email},
	}
	if u != nil {
		ev.Actor.UserID = u.Id
		ev.ResourceID = u.Id
	}
	s.audit.Log(ctx, ev)
}

// Register creates an active account with the default USER role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if name == "" || email == "" {
		return nil, apperror.Validation("NAME_EMAIL_REQUIRED", "name and email are required")
	}
	if in.Password != in.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	role, err := s.roles.GetByName(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}
	u := &models.User{Name: name, Email: email, RoleID: role.ID, IsActive: true}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.Event{
		Action:     audit.ActionCreate,
		Resource:   "user",
		ResourceID: u.Id,
		Category:   audit.CategoryUserManagement,
		Actor:      audit.Actor{UserID: u.Id, Email: u.Email},
		Details:    map[string]any{"role": role.Name, "self_registered": true},
	})
	u.Role = role
	return u, nil
}

// Login checks the credentials. Unknown email and wrong password fail the same way.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.authEvent(ctx, audit.ActionLoginFailed, audit.StatusFailed, nil, email, map[string]any{"reason": "unknown email"})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := u.ComparePassword(in.Password); err != nil {
		s.authEvent(ctx, audit.ActionLoginFailed, audit.StatusFailed, u, email, map[string]any{"reason": "bad password"})
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		s.authEvent(ctx, audit.ActionLoginFailed, audit.StatusFailed, u, email, map[string]any{"reason": "inactive"})
		return nil, ErrUserInactive
	}

	perms, err := s.roles.PermissionNames(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.TouchLogin(ctx, u.Id, now); err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	s.authEvent(ctx, audit.ActionLogin, audit.StatusSuccess, u, u.Email, nil)
	return &Session{User: u, Permissions: orEmpty(perms)}, nil
}

func (s *UserService) Logout(ctx context.Context) {
	actor := audit.ActorFrom(ctx)
	s.audit.Log(ctx, audit.Event{
		Action:     audit.ActionLogout,
		Resource:   "auth",
		ResourceID: actor.UserID,
		Category:   audit.CategoryAuthentication,
	})
}

// Me loads the current user. Deactivated users are rejected even with a valid token.
func (s *UserService) Me(ctx context.Context, id string) (*Session, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}
	perms, err := s.roles.PermissionNames(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Permissions: orEmpty(perms)}, nil
}

func (s *UserService) List(ctx context.Context, f repository.UserFilter) (List[models.User], error) {
	items, total, err := s.users.List(ctx, f)
	if err != nil {
		return List[models.User]{}, err
	}
	return newList(items, total, f.Page), nil
}

func (s *UserService) ChangeRole(ctx context.Context, id string, roleID uint) (*models.User, error) {
	if audit.ActorFrom(ctx).UserID == id {
		return nil, ErrSelfModification
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !role.IsActive {
		return nil, ErrRoleInactive
	}
	if err := s.users.UpdateFields(ctx, id, map[string]any{"role_id": role.ID}); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.Event{
		Action:     audit.ActionUpdate,
		Resource:   "user",
		ResourceID: id,
		Category:   audit.CategoryUserManagement,
		Details:    map[string]any{"operation": "change_role", "from": u.RoleID, "to": role.ID, "role": role.Name},
	})
	return s.users.Get(ctx, id)
}

func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	if audit.ActorFrom(ctx).UserID == id {
		return nil, ErrSelfModification
	}
	if _, err := s.users.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.users.UpdateFields(ctx, id, map[string]any{"is_active": active}); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.Event{
		Action:     audit.ActionUpdate,
		Resource:   "user",
		ResourceID: id,
		Category:   audit.CategoryUserManagement,
		Details:    map[string]any{"operation": "set_active", "is_active": active},
	})
	return s.users.Get(ctx, id)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
