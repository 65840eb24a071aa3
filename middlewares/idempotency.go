package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"minerfix-backend/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxKeyLength      = 128
	// A pending record older than this is treated as abandoned.
	pendingTimeout = 5 * time.Minute
)

func mutating(method string) bool {
	switch strings.ToUpper(method) {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		return true
	}
	return false
}

// requestHash is sha256 of method|path|body|user.
func requestHash(method, path string, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

// Idempotency replays the stored response of a completed request that
// carried the same Idempotency-Key. Keys are scoped per user. It uses its
// own short transactions, so it must run before Tx().
func Idempotency(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if !mutating(method) {
			return c.Next()
		}
		key := strings.TrimSpace(c.Get(idempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxKeyLength {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}
		userID := UserID(c)
		if userID == "" {
			return errMissingToken
		}

		path := c.OriginalURL()
		reqHash := requestHash(method, path, c.Body(), userID)
		ctx := c.UserContext()

		// ---- Phase 1: read or create the pending record
		var existing models.IdempotencyKey
		replay := false
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Where("user_id = ? AND key = ?", userID, key).First(&existing).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
				}
				rec := models.IdempotencyKey{
					Key:         key,
					UserID:      userID,
					RequestHash: reqHash,
					Method:      method,
					Path:        path,
				}
				if err := tx.Create(&rec).Error; err != nil {
					return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is already in progress")
				}
				existing = rec
				return nil
			}

			if existing.RequestHash != reqHash {
				return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
			}
			if existing.ResponseStatus == 0 {
				if time.Since(existing.CreatedAt) < pendingTimeout {
					return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is already in progress")
				}
				return nil
			}
			replay = true
			return nil
		})
		if err != nil {
			return err
		}
		if replay {
			c.Set("Idempotent-Replayed", "true")
			c.Status(existing.ResponseStatus).Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(existing.ResponseBody)
		}

		// ---- Run the handler once
		if err := c.Next(); err != nil {
			// Free the key so the client can retry the failed request.
			if e := db.WithContext(ctx).Delete(&models.IdempotencyKey{}, existing.ID).Error; e != nil {
				log.Warn("idempotency release failed", zap.String("key", key), zap.Error(e))
			}
			return err
		}

		// ---- Phase 2: store the response
		now := time.Now().UTC()
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)
		err = db.WithContext(ctx).Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"response_status": c.Response().StatusCode(),
				"response_body":   blob,
				"completed_at":    &now,
			}).Error
		if err != nil {
			// best-effort: don't break the successful response
			log.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}
