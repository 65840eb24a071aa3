package controllers

import (
	"context"

	"minerfix-backend/middlewares"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/services"
	"minerfix-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type UserService interface {
	List(ctx context.Context, f repository.UserFilter) (services.List[models.User], error)
	ChangeRole(ctx context.Context, id string, roleID uint) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
}

type UserController struct {
	svc UserService
}

func NewUserController(svc UserService) *UserController {
	return &UserController{svc: svc}
}

type changeRoleRequest struct {
	RoleID uint `json:"role_id" validate:"required,gt=0"`
}

type changeStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *UserController) List(c *fiber.Ctx) error {
	out, err := h.svc.List(c.UserContext(), repository.UserFilter{
		Search: search(c),
		RoleID: utils.ParseUintDefault(c.Query("role_id"), 0),
		Active: utils.ParseBoolPtr(c.Query("active")),
		Page:   pageFrom(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *UserController) ChangeRole(c *fiber.Ctx) error {
	var req changeRoleRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := h.svc.ChangeRole(c.UserContext(), c.Params("id"), req.RoleID)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (h *UserController) ChangeStatus(c *fiber.Ctx) error {
	var req changeStatusRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := h.svc.SetActive(c.UserContext(), c.Params("id"), *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(u)
}
