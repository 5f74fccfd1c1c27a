package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fantasy12/middleware"
	"fantasy12/services"
)

type ShopHandler struct {
	svc *services.ShopService
}

func SetupShopRoutes(r fiber.Router, svc *services.ShopService, requireAuth fiber.Handler) {
	h := &ShopHandler{svc: svc}
	r.Get("/store/powerups", h.Catalog)
	r.Post("/store/powerups", requireAuth, h.Buy)
}

func (h *ShopHandler) Catalog(c *fiber.Ctx) error {
	return c.JSON(h.svc.Catalog)
}

type buyRequest struct {
	ItemID string `json:"itemId"`
}

func (h *ShopHandler) Buy(c *fiber.Ctx) error {
	var in buyRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	u, err := h.svc.Buy(c.UserContext(), middleware.UserID(c), in.ItemID)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(u))
}
