package controllers

import (
	"context"
	"fmt"
	"io"

	"minerfix-backend/backup"

	"github.com/gofiber/fiber/v2"
)

type BackupService interface {
	Create(ctx context.Context) (backup.Info, error)
	List(ctx context.Context) ([]backup.Info, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type BackupController struct {
	svc BackupService
}

func NewBackupController(svc BackupService) *BackupController {
	return &BackupController{svc: svc}
}

func (h *BackupController) List(c *fiber.Ctx) error {
	items, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *BackupController) Create(c *fiber.Ctx) error {
	info, err := h.svc.Create(c.UserContext())
	if err != nil {
		return err
	}
	return created(c, info)
}

func (h *BackupController) Download(c *fiber.Ctx) error {
	name := c.Params("name")
	rc, err := h.svc.Open(c.UserContext(), name)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Send(data)
}
