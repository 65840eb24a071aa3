package controllers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AuditReader interface {
	List(ctx context.Context, f audit.Filter) ([]models.AuditLog, int64, error)
	All(ctx context.Context, f audit.Filter) ([]models.AuditLog, error)
	Stats(ctx context.Context, f audit.Filter) (audit.Stats, error)
	Log(ctx context.Context, ev audit.Event)
}

type AuditController struct {
	logs AuditReader
	now  func() time.Time
}

func NewAuditController(logs AuditReader) *AuditController {
	return &AuditController{logs: logs, now: time.Now}
}

var errExportFormat = apperror.Validation("INVALID_FORMAT", "format must be csv or xlsx")

func auditFilter(c *fiber.Ctx) (audit.Filter, error) {
	from, err := queryTime(c, "from")
	if err != nil {
		return audit.Filter{}, err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return audit.Filter{}, err
	}
	return audit.Filter{
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Action:   strings.ToUpper(strings.TrimSpace(c.Query("action"))),
		Resource: strings.TrimSpace(c.Query("resource")),
		Category: strings.ToUpper(strings.TrimSpace(c.Query("category"))),
		Severity: strings.ToLower(strings.TrimSpace(c.Query("severity"))),
		Status:   strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Search:   search(c),
		From:     from,
		To:       to,
		Page:     utils.ParseIntDefault(c.Query("page"), 1),
		PageSize: utils.ParseIntDefault(c.Query("page_size"), 0),
	}, nil
}

func (h *AuditController) List(c *fiber.Ctx) error {
	f, err := auditFilter(c)
	if err != nil {
		return err
	}
	items, total, err := h.logs.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items, "total": total})
}

func (h *AuditController) Stats(c *fiber.Ctx) error {
	f, err := auditFilter(c)
	if err != nil {
		return err
	}
	st, err := h.logs.Stats(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// Export streams every matching entry as CSV (default) or XLSX.
func (h *AuditController) Export(c *fiber.Ctx) error {
	format := strings.ToLower(c.Query("format", "csv"))
	if format != "csv" && format != "xlsx" {
		return errExportFormat
	}
	f, err := auditFilter(c)
	if err != nil {
		return err
	}
	entries, err := h.logs.All(c.UserContext(), f)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = audit.WriteXLSX(&buf, entries)
	} else {
		err = audit.WriteCSV(&buf, entries)
	}
	if err != nil {
		return apperror.Internal(err)
	}

	h.logs.Log(c.UserContext(), audit.Event{
		Action:   audit.ActionExport,
		Resource: "audit_logs",
		Category: audit.CategoryDataAccess,
		Details:  map[string]any{"format": format, "count": len(entries)},
	})

	name := fmt.Sprintf("audit-logs-%s.%s", h.now().UTC().Format("20060102-150405"), format)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Send(buf.Bytes())
}
