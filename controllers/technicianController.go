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

type TechnicianService interface {
	List(ctx context.Context, f repository.TechnicianFilter) (services.List[models.Technician], error)
	Get(ctx context.Context, id uint) (*models.Technician, error)
	Create(ctx context.Context, in services.TechnicianInput) (*models.Technician, error)
	Update(ctx context.Context, id uint, p services.TechnicianPatch) (*models.Technician, error)
	Delete(ctx context.Context, id uint) error
}

type TechnicianController struct {
	svc TechnicianService
}

func NewTechnicianController(svc TechnicianService) *TechnicianController {
	return &TechnicianController{svc: svc}
}

func (h *TechnicianController) List(c *fiber.Ctx) error {
	out, err := h.svc.List(c.UserContext(), repository.TechnicianFilter{
		Search: search(c),
		Active: utils.ParseBoolPtr(c.Query("active")),
		Page:   pageFrom(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *TechnicianController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(t)
}

func (h *TechnicianController) Create(c *fiber.Ctx) error {
	var in services.TechnicianInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	t, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, t)
}

func (h *TechnicianController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var p services.TechnicianPatch
	if err := middlewares.BindAndValidate(c, &p); err != nil {
		return err
	}
	t, err := h.svc.Update(c.UserContext(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(t)
}

func (h *TechnicianController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return noContent(c)
}
