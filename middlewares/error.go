package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"minerfix-backend/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NewErrorHandler centralizes error responses and keeps messages sanitized.
// Every error body is {"code": ..., "message": ...}.
func NewErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Validation errors (400 + per-field info)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make(map[string]string, len(ve))
			for _, fe := range ve {
				fields[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"code":    "VALIDATION_ERROR",
				"message": "validation failed",
				"fields":  fields,
			})
		}

		// 2) Domain errors carry their own status and code
		var ae *apperror.Error
		if errors.As(err, &ae) {
			if ae.Kind == apperror.KindInternal {
				return internalError(c, log, err)
			}
			return c.Status(ae.Kind.HTTPStatus()).JSON(fiber.Map{"code": ae.Code, "message": ae.Message})
		}

		// 3) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			if fe.Code >= fiber.StatusInternalServerError {
				return internalError(c, log, err)
			}
			return c.Status(fe.Code).JSON(fiber.Map{"code": statusCode(fe.Code), "message": fe.Message})
		}

		// 4) Unknown errors (500)
		return internalError(c, log, err)
	}
}

func internalError(c *fiber.Ctx, log *zap.Logger, err error) error {
	log.Error("internal error",
		zap.Error(err),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    "INTERNAL_ERROR",
		"message": "internal server error",
	})
}

// statusCode turns 404 into NOT_FOUND, 429 into TOO_MANY_REQUESTS, etc.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
