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

type MinerModelService interface {
	List(ctx context.Context, f repository.MinerModelFilter) (services.List[models.MinerModel], error)
	Get(ctx context.Context, id uint) (*models.MinerModel, error)
	Create(ctx context.Context, in services.MinerModelInput) (*models.MinerModel, error)
	Update(ctx context.Context, id uint, p services.MinerModelPatch) (*models.MinerModel, error)
	Delete(ctx context.Context, id uint) error
}

type MinerModelController struct {
	svc MinerModelService
}

func NewMinerModelController(svc MinerModelService) *MinerModelController {
	return &MinerModelController{svc: svc}
}

func (h *MinerModelController) List(c *fiber.Ctx) error {
	out, err := h.svc.List(c.UserContext(), repository.MinerModelFilter{
		Search: search(c),
		Active: utils.ParseBoolPtr(c.Query("active")),
		Page:   pageFrom(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *MinerModelController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (h *MinerModelController) Create(c *fiber.Ctx) error {
	var in services.MinerModelInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	m, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, m)
}

func (h *MinerModelController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var p services.MinerModelPatch
	if err := middlewares.BindAndValidate(c, &p); err != nil {
		return err
	}
	m, err := h.svc.Update(c.UserContext(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (h *MinerModelController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return noContent(c)
}
