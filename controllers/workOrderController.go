package controllers

import (
	"context"
	"strings"

	"minerfix-backend/middlewares"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/services"
	"minerfix-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type WorkOrderService interface {
	List(ctx context.Context, f repository.WorkOrderFilter) (services.List[models.WorkOrder], error)
	Get(ctx context.Context, id uint) (*models.WorkOrder, error)
	Create(ctx context.Context, in services.WorkOrderInput) (*models.WorkOrder, error)
	Update(ctx context.Context, id uint, p services.WorkOrderPatch) (*models.WorkOrder, error)
	ChangeStatus(ctx context.Context, id uint, in services.StatusChange) (*models.WorkOrder, error)
	Delete(ctx context.Context, id uint) error
}

type WorkOrderController struct {
	svc WorkOrderService
}

func NewWorkOrderController(svc WorkOrderService) *WorkOrderController {
	return &WorkOrderController{svc: svc}
}

func (h *WorkOrderController) List(c *fiber.Ctx) error {
	out, err := h.svc.List(c.UserContext(), repository.WorkOrderFilter{
		Status:       strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Priority:     strings.ToUpper(strings.TrimSpace(c.Query("priority"))),
		CustomerID:   utils.ParseUintDefault(c.Query("customer_id"), 0),
		TechnicianID: utils.ParseUintDefault(c.Query("technician_id"), 0),
		Search:       search(c),
		Page:         pageFrom(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *WorkOrderController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	wo, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(wo)
}

func (h *WorkOrderController) Create(c *fiber.Ctx) error {
	var in services.WorkOrderInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	wo, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, wo)
}

func (h *WorkOrderController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var p services.WorkOrderPatch
	if err := middlewares.BindAndValidate(c, &p); err != nil {
		return err
	}
	wo, err := h.svc.Update(c.UserContext(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(wo)
}

func (h *WorkOrderController) ChangeStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.StatusChange
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	wo, err := h.svc.ChangeStatus(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(wo)
}

func (h *WorkOrderController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return noContent(c)
}
