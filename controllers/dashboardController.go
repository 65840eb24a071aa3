package controllers

import (
	"context"

	"minerfix-backend/services"

	"github.com/gofiber/fiber/v2"
)

type DashboardService interface {
	Stats(ctx context.Context) (*services.DashboardStats, error)
}

type DashboardController struct {
	svc DashboardService
}

func NewDashboardController(svc DashboardService) *DashboardController {
	return &DashboardController{svc: svc}
}

func (h *DashboardController) Stats(c *fiber.Ctx) error {
	st, err := h.svc.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}
