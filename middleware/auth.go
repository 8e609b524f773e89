package middleware

import (
	"strings"

	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "user_id"

// UserContextMiddleware extracts the user identity set by the Gateway.
// Every route behind it needs a user, so a missing header is rejected.
func UserContextMiddleware(log *utils.Logger) fiber.Handler {
	log = log.With("middleware", "user_context")

	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("❌ X-User-ID required but missing", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID, request must come through gateway with auth context",
			})
		}

		c.Locals(userIDKey, userID)
		log.Debug("👤 user context", "user_id", userID, "method", c.Method(), "path", c.Path())
		return c.Next()
	}
}

// UserID returns the identity stored by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
