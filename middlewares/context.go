package middlewares

import (
	"minerfix-backend/audit"

	"github.com/gofiber/fiber/v2"
)

// ClientInfo seeds the audit actor with the caller's address so that public
// endpoints such as login are attributed too.
func ClientInfo() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(audit.WithActor(c.UserContext(), audit.Actor{
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}))
		return c.Next()
	}
}
