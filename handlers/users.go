package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fantasy12/middleware"
	"fantasy12/ratelimit"
	"fantasy12/services"
)

type UserHandler struct {
	svc *services.UserService
}

func SetupUserRoutes(r fiber.Router, svc *services.UserService, limiter *ratelimit.Limiter, requireAuth, optionalAuth fiber.Handler) {
	h := &UserHandler{svc: svc}

	g := r.Group("/users")
	g.Get("/", optionalAuth, h.List)
	g.Post("/", middleware.RateLimit(limiter, ratelimit.Create.Name), h.Create)
	g.Get("/:id", h.Get)
	g.Put("/:id", requireAuth, h.Update)
	g.Delete("/:id", requireAuth, h.Delete)
	g.Get("/:id/transactions", requireAuth, h.Transactions)
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(toUserResponses(users))
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	u, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(u))
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in services.CreateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	u, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toUserResponse(u))
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	var in services.UpdateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	u, err := h.svc.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(u))
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(MessageResponse{Message: "account removed"})
}

func (h *UserHandler) Transactions(c *fiber.Ctx) error {
	txs, err := h.svc.Transactions(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(txs)
}
