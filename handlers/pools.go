package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fantasy12/middleware"
	"fantasy12/services"
)

type PoolHandler struct {
	pools    *services.PoolService
	rankings *services.RankingService
}

func SetupPoolRoutes(r fiber.Router, pools *services.PoolService, rankings *services.RankingService, requireAuth fiber.Handler) {
	h := &PoolHandler{pools: pools, rankings: rankings}

	g := r.Group("/pools")
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Post("/:id/join", h.Join)
	g.Post("/:id/close", requireAuth, h.Close)
	g.Get("/:id/ranking", h.Ranking)
}

func (h *PoolHandler) List(c *fiber.Ctx) error {
	pools, err := h.pools.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(toPoolResponses(pools))
}

func (h *PoolHandler) Get(c *fiber.Ctx) error {
	p, err := h.pools.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toPoolResponse(p))
}

func (h *PoolHandler) Create(c *fiber.Ctx) error {
	var in services.CreatePoolInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := h.pools.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(toPoolResponse(p))
}

type joinRequest struct {
	UserID string `json:"userId"`
}

func (h *PoolHandler) Join(c *fiber.Ctx) error {
	var in joinRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := h.pools.Join(c.UserContext(), c.Params("id"), in.UserID)
	if err != nil {
		return err
	}
	return c.JSON(toPoolResponse(p))
}

func (h *PoolHandler) Close(c *fiber.Ctx) error {
	p, err := h.pools.Close(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toPoolResponse(p))
}

func (h *PoolHandler) Ranking(c *fiber.Ctx) error {
	entries, err := h.rankings.Pool(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}
