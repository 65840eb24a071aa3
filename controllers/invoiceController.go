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

type InvoiceService interface {
	List(ctx context.Context, f repository.InvoiceFilter) (services.List[models.Invoice], error)
	Get(ctx context.Context, id uint) (*models.Invoice, error)
	Create(ctx context.Context, in services.InvoiceInput) (*models.Invoice, error)
	Update(ctx context.Context, id uint, p services.InvoicePatch) (*models.Invoice, error)
	Send(ctx context.Context, id uint) (*models.Invoice, error)
	Cancel(ctx context.Context, id uint) (*models.Invoice, error)
	Delete(ctx context.Context, id uint) error
}

type PaymentService interface {
	ListByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error)
	Create(ctx context.Context, invoiceID uint, in services.PaymentInput) (*models.Payment, *models.Invoice, error)
	Delete(ctx context.Context, id uint) (*models.Invoice, error)
}

type InvoiceController struct {
	svc      InvoiceService
	payments PaymentService
}

func NewInvoiceController(svc InvoiceService, payments PaymentService) *InvoiceController {
	return &InvoiceController{svc: svc, payments: payments}
}

func (h *InvoiceController) List(c *fiber.Ctx) error {
	out, err := h.svc.List(c.UserContext(), repository.InvoiceFilter{
		Status:      strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		CustomerID:  utils.ParseUintDefault(c.Query("customer_id"), 0),
		WorkOrderID: utils.ParseUintDefault(c.Query("work_order_id"), 0),
		Search:      search(c),
		Page:        pageFrom(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *InvoiceController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

func (h *InvoiceController) Create(c *fiber.Ctx) error {
	var in services.InvoiceInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	inv, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, inv)
}

func (h *InvoiceController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var p services.InvoicePatch
	if err := middlewares.BindAndValidate(c, &p); err != nil {
		return err
	}
	inv, err := h.svc.Update(c.UserContext(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

func (h *InvoiceController) Send(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Send)
}

func (h *InvoiceController) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Cancel)
}

func (h *InvoiceController) transition(c *fiber.Ctx, op func(ctx context.Context, id uint) (*models.Invoice, error)) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inv, err := op(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

func (h *InvoiceController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return noContent(c)
}

// Payments

func (h *InvoiceController) ListPayments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.payments.ListByInvoice(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *InvoiceController) CreatePayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.PaymentInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	payment, inv, err := h.payments.Create(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"payment": payment, "invoice": inv})
}

func (h *InvoiceController) DeletePayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.payments.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"invoice": inv})
}
