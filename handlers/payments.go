package handlers

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"fantasy12/middleware"
	"fantasy12/ratelimit"
	"fantasy12/services"
)

type PaymentHandler struct {
	svc *services.PaymentService
}

func SetupPaymentRoutes(r fiber.Router, svc *services.PaymentService, limiter *ratelimit.Limiter) {
	h := &PaymentHandler{svc: svc}

	g := r.Group("/payments")
	g.Get("/packages", h.Packages)
	g.Post("/process", middleware.RateLimit(limiter, ratelimit.Strict.Name), h.Process)
	g.Post("/webhook", h.Webhook)
	g.Post("/stripe", h.Webhook)
}

func (h *PaymentHandler) Packages(c *fiber.Ctx) error {
	return c.JSON(h.svc.ListPackages())
}

func (h *PaymentHandler) Process(c *fiber.Ctx) error {
	var in services.ProcessPaymentInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	u, err := h.svc.Process(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(u))
}

// Webhook acknowledges provider callbacks. Payments are confirmed
// synchronously by Process, so events are only logged.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	log.WithField("bytes", len(c.Body())).Info("payment webhook received")
	return c.JSON(fiber.Map{"received": true})
}
