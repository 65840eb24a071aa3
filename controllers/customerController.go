package controllers

import (
	"context"

	"minerfix-backend/middlewares"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/services"

	"github.com/gofiber/fiber/v2"
)

type CustomerService interface {
	List(ctx context.Context, f repository.CustomerFilter) (services.List[models.Customer], error)
	Get(ctx context.Context, id uint) (*models.Customer, error)
	Create(ctx context.Context, in services.CustomerInput) (*models.Customer, error)
	Update(ctx context.Context, id uint, p services.CustomerPatch) (*models.Customer, error)
	Delete(ctx context.Context, id uint) error
}

type CustomerController struct {
	svc CustomerService
}

func NewCustomerController(svc CustomerService) *CustomerController {
	return &CustomerController{svc: svc}
}

func (h *CustomerController) List(c *fiber.Ctx) error {
	out, err := h.svc.List(c.UserContext(), repository.CustomerFilter{Search: search(c), Page: pageFrom(c)})
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *CustomerController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	customer, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(customer)
}

func (h *CustomerController) Create(c *fiber.Ctx) error {
	var in services.CustomerInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	customer, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, customer)
}

func (h *CustomerController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var p services.CustomerPatch
	if err := middlewares.BindAndValidate(c, &p); err != nil {
		return err
	}
	customer, err := h.svc.Update(c.UserContext(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(customer)
}

func (h *CustomerController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return noContent(c)
}
