package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fantasy12/services"
)

type LogHandler struct {
	audit *services.AuditService
}

func SetupLogRoutes(r fiber.Router, audit *services.AuditService) {
	h := &LogHandler{audit: audit}
	r.Get("/logs", h.List)
	r.Post("/logs", h.Create)
}

func (h *LogHandler) List(c *fiber.Ctx) error {
	logs, err := h.audit.List(c.UserContext(), c.QueryInt("limit", services.DefaultLogLimit))
	if err != nil {
		return err
	}
	return c.JSON(logs)
}

func (h *LogHandler) Create(c *fiber.Ctx) error {
	var in services.CreateLogInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	entry, err := h.audit.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}
