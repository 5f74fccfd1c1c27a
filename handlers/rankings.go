package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fantasy12/services"
)

func SetupRankingRoutes(r fiber.Router, svc *services.RankingService) {
	r.Get("/rankings", func(c *fiber.Ctx) error {
		entries, err := svc.General(c.UserContext(), services.RankingScope(c.Query("scope")))
		if err != nil {
			return err
		}
		return c.JSON(entries)
	})
}
