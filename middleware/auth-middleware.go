package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-edit/auth"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/models"
)

const localUser = "user"

// AuthMiddleware resolves the bearer token (or JWT cookie) to a local user,
// provisioning it on first sign-in.
func AuthMiddleware(tokens *auth.Service, accounts *auth.Accounts, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenStr == "" {
			tokenStr = c.Cookies("JWT")
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "You are not authorized!",
				"data":    nil,
			})
		}

		identity, err := tokens.Parse(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid token",
				"data":    nil,
			})
		}

		user, err := accounts.Resolve(c.UserContext(), identity)
		if err != nil {
			log.WithError(err).WithField("clerk_id", identity.Subject).Error("failed to resolve user")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Something went wrong",
				"data":    nil,
			})
		}

		c.Locals(localUser, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(localUser).(*models.User)
	return user, ok && user != nil
}
