package middleware

import (
	"strings"

	pkgError "github.com/AzielCF/az-chat/pkg/error"
	"github.com/gofiber/fiber/v2"
)

const localsUserID = "current_user_id"

// Identity reads the current user from header, which the upstream auth
// proxy sets. Requests without it are rejected.
func Identity(header string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		userID := strings.TrimSpace(c.Get(header))
		if userID == "" {
			panic(pkgError.UnauthorizedError("missing " + header + " header"))
		}

		c.Locals(localsUserID, userID)
		return c.Next()
	}
}

// CurrentUserID returns the identity stored by Identity, or "".
func CurrentUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(localsUserID).(string)
	return userID
}
