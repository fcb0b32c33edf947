package middleware

import (
	"stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth rejects requests without a session or bearer identity.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := auth.VerifyUser(c.Locals(userLocal)); err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the raw session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentIdentity returns the acting identity, or nil for anonymous requests.
func CurrentIdentity(c *fiber.Ctx) *auth.Identity {
	identity, err := auth.VerifyUser(c.Locals(userLocal))
	if err != nil {
		return nil
	}
	return identity
}
