package controllers

import (
	"context"
	"strings"

	"minerfix-backend/middlewares"
	"minerfix-backend/models"
	"minerfix-backend/services"

	"github.com/gofiber/fiber/v2"
)

type RoleService interface {
	List(ctx context.Context) ([]models.Role, error)
	Get(ctx context.Context, id uint) (*models.Role, error)
	Create(ctx context.Context, in services.RoleInput) (*models.Role, error)
	Update(ctx context.Context, id uint, p services.RolePatch) (*models.Role, error)
	Delete(ctx context.Context, id uint) error
	AssignPermission(ctx context.Context, roleID, permissionID uint) (services.AssignResult, error)
	AssignPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (services.AssignResult, error)
	ReplacePermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*models.Role, error)
	RemovePermission(ctx context.Context, roleID, permissionID uint) error
	ListPermissions(ctx context.Context, resource string) ([]models.Permission, error)
	CreatePermission(ctx context.Context, in services.PermissionInput) (*models.Permission, error)
	UpdatePermission(ctx context.Context, id uint, in services.PermissionPatch) (*models.Permission, error)
	DeletePermission(ctx context.Context, id uint) error
}

type RoleController struct {
	svc RoleService
}

func NewRoleController(svc RoleService) *RoleController {
	return &RoleController{svc: svc}
}

type assignPermissionRequest struct {
	PermissionID uint `json:"permission_id" validate:"required,gt=0"`
}

type permissionIDsRequest struct {
	PermissionIDs []uint `json:"permission_ids" validate:"required,dive,gt=0"`
}

func (h *RoleController) List(c *fiber.Ctx) error {
	roles, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": roles})
}

func (h *RoleController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	role, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(role)
}

func (h *RoleController) Create(c *fiber.Ctx) error {
	var in services.RoleInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	role, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, role)
}

func (h *RoleController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var p services.RolePatch
	if err := middlewares.BindAndValidate(c, &p); err != nil {
		return err
	}
	role, err := h.svc.Update(c.UserContext(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(role)
}

func (h *RoleController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return noContent(c)
}

func (h *RoleController) AssignPermission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req assignPermissionRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.svc.AssignPermission(c.UserContext(), id, req.PermissionID)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *RoleController) AssignPermissions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req permissionIDsRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.svc.AssignPermissions(c.UserContext(), id, req.PermissionIDs)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// ReplacePermissions accepts an empty list, which revokes everything.
func (h *RoleController) ReplacePermissions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		PermissionIDs []uint `json:"permission_ids" validate:"dive,gt=0"`
	}
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := h.svc.ReplacePermissions(c.UserContext(), id, req.PermissionIDs)
	if err != nil {
		return err
	}
	return c.JSON(role)
}

func (h *RoleController) RemovePermission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	permissionID, err := paramID(c, "permissionId")
	if err != nil {
		return err
	}
	if err := h.svc.RemovePermission(c.UserContext(), id, permissionID); err != nil {
		return err
	}
	return noContent(c)
}

// Permissions

func (h *RoleController) ListPermissions(c *fiber.Ctx) error {
	perms, err := h.svc.ListPermissions(c.UserContext(), strings.TrimSpace(c.Query("resource")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": perms})
}

func (h *RoleController) CreatePermission(c *fiber.Ctx) error {
	var in services.PermissionInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	p, err := h.svc.CreatePermission(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, p)
}

func (h *RoleController) UpdatePermission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.PermissionPatch
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	p, err := h.svc.UpdatePermission(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *RoleController) DeletePermission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePermission(c.UserContext(), id); err != nil {
		return err
	}
	return noContent(c)
}
