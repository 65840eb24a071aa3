// Package controllers holds the fiber handlers. Each controller depends on
// a small service interface and leaves error rendering to the app's
// ErrorHandler.
package controllers

import (
	"strconv"
	"strings"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/repository"
	"minerfix-backend/utils"

	"github.com/gofiber/fiber/v2"
)

var errInvalidID = apperror.Validation("INVALID_ID", "id must be a positive integer")

func paramID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, errInvalidID
	}
	return uint(v), nil
}

func pageFrom(c *fiber.Ctx) repository.Page {
	return repository.Page{
		Page:     utils.ParseIntDefault(c.Query("page"), 1),
		PageSize: utils.ParseIntDefault(c.Query("page_size"), 0),
	}
}

func search(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Query("search"))
}

// queryTime accepts RFC 3339 or a plain YYYY-MM-DD date.
func queryTime(c *fiber.Ctx, key string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apperror.Validation("INVALID_DATE", key+" must be RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

func created(c *fiber.Ctx, v any) error {
	return c.Status(fiber.StatusCreated).JSON(v)
}

func noContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
