package middlewares

import (
	"minerfix-backend/database"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tx opens a per-request DB transaction for mutating requests and hands it
// to repositories through the request context. Order: run AFTER
// IsAuthenticated() and Idempotency() (so idempotency records aren't tied
// to the handler TX).
func Tx(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		if !mutating(c.Method()) {
			return c.Next()
		}

		tx := db.WithContext(c.UserContext()).Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		// Ensure we always cleanup.
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so the recover middleware can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				log.Error("tx commit failed", zap.Error(e), zap.String("path", c.Path()))
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		c.SetUserContext(database.WithTx(c.UserContext(), tx))
		return c.Next()
	}
}
