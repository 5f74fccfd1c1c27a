package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fantasy12/middleware"
	"fantasy12/services"
)

func SetupAdminRoutes(r fiber.Router, users *services.UserService, requireAuth, requireAdmin fiber.Handler) {
	admin := r.Group("/admin", requireAuth, requireAdmin)
	admin.Put("/users/:id", func(c *fiber.Ctx) error {
		var body AdminUserUpdate
		if err := parseBody(c, &body); err != nil {
			return err
		}
		u, err := users.AdminUpdate(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), applyUserUpdate(body))
		if err != nil {
			return err
		}
		return c.JSON(toUserResponse(u))
	})
}
