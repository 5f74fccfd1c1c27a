package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"fantasy12/apperr"
	"fantasy12/models"
	"fantasy12/store"
)

// RequireAdmin loads the authenticated user and rejects everyone but
// admins. It must run after Authenticate.
func RequireAdmin(users store.Users) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := UserID(c)
		if id == "" {
			return apperr.Unauthorized("access token required")
		}
		u, err := users.GetUser(c.UserContext(), id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Unauthorized("user no longer exists")
		}
		if err != nil {
			return apperr.Internal("failed to load user", err)
		}
		if !u.IsAdmin() {
			return apperr.Forbidden("admin role required")
		}
		c.Locals(LocalUser, u)
		return c.Next()
	}
}

// CurrentUser returns the user loaded by RequireAdmin.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalUser).(*models.User)
	return u
}
