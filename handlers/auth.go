package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fantasy12/middleware"
	"fantasy12/ratelimit"
	"fantasy12/services"
)

type AuthHandler struct {
	svc *services.AuthService
}

func SetupAuthRoutes(r fiber.Router, svc *services.AuthService, limiter *ratelimit.Limiter, requireAuth fiber.Handler) {
	h := &AuthHandler{svc: svc}
	authLimit := middleware.RateLimit(limiter, ratelimit.Auth.Name)

	g := r.Group("/auth")
	g.Post("/register", authLimit, h.Register)
	g.Post("/login", authLimit, h.Login)
	g.Get("/me", requireAuth, h.Me)
	g.Post("/logout", requireAuth, h.Logout)
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	sess, err := h.svc.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(sess))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	sess, err := h.svc.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(toSessionResponse(sess))
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, err := h.svc.Me(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(u))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.svc.Logout(c.UserContext(), middleware.UserID(c))
	return c.JSON(MessageResponse{Message: "logged out"})
}
