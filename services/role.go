package services

import (
	"context"
	"sort"
	"strings"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/utils"
)

var (
	ErrSystemRoleImmutable       = apperror.Permission("SYSTEM_ROLE_IMMUTABLE", "system roles cannot be modified")
	ErrSystemPermissionImmutable = apperror.Permission("SYSTEM_PERMISSION_IMMUTABLE", "system permissions cannot be modified")
	ErrRoleInUse                 = apperror.Conflict("ROLE_IN_USE", "role is assigned to users")
	ErrUnknownPermissions        = apperror.Validation("UNKNOWN_PERMISSIONS", "one or more permissions do not exist")
	ErrPermissionNotAssigned     = apperror.NotFound("PERMISSION_NOT_ASSIGNED", "permission is not assigned to this role")
)

type RoleStore interface {
	List(ctx context.Context) ([]models.Role, error)
	Get(ctx context.Context, id uint) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id uint) error
	CountUsers(ctx context.Context, id uint) (int64, error)
	PermissionIDs(ctx context.Context, roleID uint) ([]uint, error)
	PermissionNames(ctx context.Context, roleID uint) ([]string, error)
	Grant(ctx context.Context, roleID uint, permissionIDs []uint) error
	Revoke(ctx context.Context, roleID, permissionID uint) (bool, error)
	RevokeAll(ctx context.Context, roleID uint) error
}

type PermissionStore interface {
	List(ctx context.Context, resource string) ([]models.Permission, error)
	Get(ctx context.Context, id uint) (*models.Permission, error)
	GetMany(ctx context.Context, ids []uint) ([]models.Permission, error)
	Create(ctx context.Context, p *models.Permission) error
	Update(ctx context.Context, p *models.Permission) error
	Delete(ctx context.Context, id uint) error
}

type RoleInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	DisplayName string `json:"display_name" validate:"max=100"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	// PermissionIDs are granted on creation.
	PermissionIDs []uint `json:"permission_ids"`
}

type RolePatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=50"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type PermissionInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	DisplayName string `json:"display_name" validate:"max=150"`
	Resource    string `json:"resource" validate:"max=50"`
	Action      string `json:"action" validate:"max=50"`
	Description string `json:"description"`
}

type PermissionPatch struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=150"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// AssignResult reports what an assignment actually changed.
type AssignResult struct {
	Assigned        []uint `json:"assigned"`
	AlreadyAssigned []uint `json:"already_assigned"`
	Message         string `json:"message"`
}

type RoleService struct {
	roles       RoleStore
	permissions PermissionStore
	tx          Transactor
	audit       Auditor
}

func NewRoleService(roles RoleStore, permissions PermissionStore, tx Transactor, a Auditor) *RoleService {
	return &RoleService{roles: roles, permissions: permissions, tx: tx, audit: a}
}

func (s *RoleService) recordRole(ctx context.Context, action string, roleID uint, details map[string]any) {
	s.audit.Log(ctx, audit.Event{
		Action:     action,
		Resource:   "role",
		ResourceID: idString(roleID),
		Status:     audit.StatusSuccess,
		Category:   audit.CategoryUserManagement,
		Details:    details,
	})
}

func (s *RoleService) denied(ctx context.Context, role *models.Role, op string) error {
	s.audit.Log(ctx, audit.Event{
		Action:     audit.ActionUpdate,
		Resource:   "role",
		ResourceID: idString(role.ID),
		Status:     audit.StatusFailed,
		Category:   audit.CategoryUserManagement,
		Details:    map[string]any{"operation": op, "role": role.Name, "reason": "system role"},
	})
	return ErrSystemRoleImmutable
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	return s.roles.List(ctx)
}

func (s *RoleService) Get(ctx context.Context, id uint) (*models.Role, error) {
	return s.roles.Get(ctx, id)
}

func normalizeRoleName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), "_"))
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// requirePermissions fails unless every id exists.
func (s *RoleService) requirePermissions(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.permissions.GetMany(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return ErrUnknownPermissions
	}
	return nil
}

func (s *RoleService) Create(ctx context.Context, in RoleInput) (*models.Role, error) {
	utils.NormalizeDTO(&in)
	name := normalizeRoleName(in.Name)
	if name == "" {
		return nil, apperror.Validation("NAME_REQUIRED", "role name is required")
	}
	ids := dedupe(in.PermissionIDs)

	role := &models.Role{
		Name:        name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.requirePermissions(ctx, ids); err != nil {
			return err
		}
		if err := s.roles.Create(ctx, role); err != nil {
			return err
		}
		return s.roles.Grant(ctx, role.ID, ids)
	})
	if err != nil {
		return nil, err
	}
	s.recordRole(ctx, audit.ActionCreate, role.ID, map[string]any{"name": role.Name, "permission_ids": ids})
	return s.roles.Get(ctx, role.ID)
}

func (s *RoleService) Update(ctx context.Context, id uint, p RolePatch) (*models.Role, error) {
	utils.NormalizePtrDTO(&p)
	role, err := s.roles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, s.denied(ctx, role, "update")
	}
	if p.Name != nil {
		name := normalizeRoleName(*p.Name)
		if name == "" {
			return nil, apperror.Validation("NAME_REQUIRED", "role name cannot be empty")
		}
		role.Name = name
	}
	if p.DisplayName != nil {
		role.DisplayName = *p.DisplayName
	}
	if p.Description != nil {
		role.Description = *p.Description
	}
	if p.IsActive != nil {
		role.IsActive = *p.IsActive
	}
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	s.recordRole(ctx, audit.ActionUpdate, role.ID, utils.UpdatesFromPtrDTO(&p, nil))
	return s.roles.Get(ctx, id)
}

func (s *RoleService) Delete(ctx context.Context, id uint) error {
	role, err := s.roles.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return s.denied(ctx, role, "delete")
	}
	n, err := s.roles.CountUsers(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrRoleInUse
	}
	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}
	s.recordRole(ctx, audit.ActionDelete, id, map[string]any{"name": role.Name})
	return nil
}

// AssignPermission grants one permission. Granting one the role already
// has changes nothing and is reported as already assigned.
func (s *RoleService) AssignPermission(ctx context.Context, roleID, permissionID uint) (AssignResult, error) {
	return s.AssignPermissions(ctx, roleID, []uint{permissionID})
}

// AssignPermissions grants every listed permission the role does not have yet.
func (s *RoleService) AssignPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (AssignResult, error) {
	ids := dedupe(permissionIDs)
	if len(ids) == 0 {
		return AssignResult{}, apperror.Validation("PERMISSIONS_REQUIRED", "at least one permission id is required")
	}

	var res AssignResult
	var role *models.Role
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		role, err = s.roles.Get(ctx, roleID)
		if err != nil {
			return err
		}
		if role.IsSystem {
			return ErrSystemRoleImmutable
		}
		if err := s.requirePermissions(ctx, ids); err != nil {
			return err
		}
		current, err := s.roles.PermissionIDs(ctx, roleID)
		if err != nil {
			return err
		}
		has := make(map[uint]bool, len(current))
		for _, id := range current {
			has[id] = true
		}
		res.Assigned = []uint{}
		res.AlreadyAssigned = []uint{}
		for _, id := range ids {
			if has[id] {
				res.AlreadyAssigned = append(res.AlreadyAssigned, id)
			} else {
				res.Assigned = append(res.Assigned, id)
			}
		}
		return s.roles.Grant(ctx, roleID, res.Assigned)
	})
	if err != nil {
		if role != nil && role.IsSystem {
			return AssignResult{}, s.denied(ctx, role, "assign_permissions")
		}
		return AssignResult{}, err
	}

	switch {
	case len(res.Assigned) == 0:
		res.Message = "permission already assigned"
		if len(res.AlreadyAssigned) > 1 {
			res.Message = "permissions already assigned"
		}
	case len(res.AlreadyAssigned) > 0:
		res.Message = "permissions assigned; some were already assigned"
	default:
		res.Message = "permissions assigned"
	}
	if len(res.Assigned) > 0 {
		s.recordRole(ctx, audit.ActionUpdate, roleID, map[string]any{
			"operation":      "assign_permissions",
			"permission_ids": res.Assigned,
		})
	}
	return res, nil
}

// ReplacePermissions swaps the whole permission set in one transaction.
func (s *RoleService) ReplacePermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*models.Role, error) {
	ids := dedupe(permissionIDs)
	var role *models.Role
	var before []uint
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		role, err = s.roles.Get(ctx, roleID)
		if err != nil {
			return err
		}
		if role.IsSystem {
			return ErrSystemRoleImmutable
		}
		if err := s.requirePermissions(ctx, ids); err != nil {
			return err
		}
		if before, err = s.roles.PermissionIDs(ctx, roleID); err != nil {
			return err
		}
		if err := s.roles.RevokeAll(ctx, roleID); err != nil {
			return err
		}
		return s.roles.Grant(ctx, roleID, ids)
	})
	if err != nil {
		if role != nil && role.IsSystem {
			return nil, s.denied(ctx, role, "replace_permissions")
		}
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s.recordRole(ctx, audit.ActionUpdate, roleID, map[string]any{
		"operation": "replace_permissions",
		"before":    before,
		"after":     ids,
	})
	return s.roles.Get(ctx, roleID)
}

func (s *RoleService) RemovePermission(ctx context.Context, roleID, permissionID uint) error {
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return s.denied(ctx, role, "remove_permission")
	}
	removed, err := s.roles.Revoke(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrPermissionNotAssigned
	}
	s.recordRole(ctx, audit.ActionUpdate, roleID, map[string]any{
		"operation":     "remove_permission",
		"permission_id": permissionID,
	})
	return nil
}

// PermissionNames returns the active permission codes of a role; used when
// issuing tokens.
func (s *RoleService) PermissionNames(ctx context.Context, roleID uint) ([]string, error) {
	return s.roles.PermissionNames(ctx, roleID)
}

func (s *RoleService) ListPermissions(ctx context.Context, resource string) ([]models.Permission, error) {
	return s.permissions.List(ctx, resource)
}

func (s *RoleService) CreatePermission(ctx context.Context, in PermissionInput) (*models.Permission, error) {
	utils.NormalizeDTO(&in)
	name := strings.ToLower(in.Name)
	if name == "" {
		return nil, apperror.Validation("NAME_REQUIRED", "permission name is required")
	}
	resource, action := in.Resource, in.Action
	if resource == "" || action == "" {
		r, a, _ := strings.Cut(name, ".")
		if resource == "" {
			resource = r
		}
		if action == "" {
			action = a
		}
	}
	p := &models.Permission{
		Name:        name,
		DisplayName: in.DisplayName,
		Resource:    resource,
		Action:      action,
		Description: in.Description,
		IsActive:    true,
	}
	if err := s.permissions.Create(ctx, p); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.Event{
		Action: audit.ActionCreate, Resource: "permission", ResourceID: idString(p.ID),
		Category: audit.CategoryUserManagement, Details: map[string]any{"name": p.Name},
	})
	return p, nil
}

func (s *RoleService) UpdatePermission(ctx context.Context, id uint, in PermissionPatch) (*models.Permission, error) {
	utils.NormalizePtrDTO(&in)
	p, err := s.permissions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsSystem {
		return nil, ErrSystemPermissionImmutable
	}
	if in.DisplayName != nil {
		p.DisplayName = *in.DisplayName
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.permissions.Update(ctx, p); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.Event{
		Action: audit.ActionUpdate, Resource: "permission", ResourceID: idString(p.ID),
		Category: audit.CategoryUserManagement, Details: utils.UpdatesFromPtrDTO(&in, nil),
	})
	return p, nil
}

func (s *RoleService) DeletePermission(ctx context.Context, id uint) error {
	p, err := s.permissions.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.IsSystem {
		return ErrSystemPermissionImmutable
	}
	if err := s.permissions.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Log(ctx, audit.Event{
		Action: audit.ActionDelete, Resource: "permission", ResourceID: idString(id),
		Category: audit.CategoryUserManagement, Details: map[string]any{"name": p.Name},
	})
	return nil
}
