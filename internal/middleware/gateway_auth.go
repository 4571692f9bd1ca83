package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/journalforge/api/pkg/response"
)

// GatewayAuth trusts identity headers injected by an upstream API gateway.
// Only enable this when the service is unreachable except through the
// gateway; the headers are not verifiable here.
func GatewayAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing X-User-Id header")
		}

		c.Locals("userId", userID)
		if email := c.Get("X-User-Email"); email != "" {
			c.Locals("email", email)
		}

		return c.Next()
	}
}
