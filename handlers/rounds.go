package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fantasy12/middleware"
	"fantasy12/services"
)

type RoundHandler struct {
	rounds   *services.RoundService
	tickets  *services.TicketService
	rankings *services.RankingService
}

func SetupRoundRoutes(r fiber.Router, rounds *services.RoundService, tickets *services.TicketService, rankings *services.RankingService, requireAuth, requireAdmin fiber.Handler) {
	h := &RoundHandler{rounds: rounds, tickets: tickets, rankings: rankings}

	g := r.Group("/rounds")
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Post("/:id/settle", requireAuth, requireAdmin, h.Settle)
	g.Get("/:id/ranking", h.Ranking)
	g.Post("/:id/tickets", requireAuth, h.PlaceTicket)
	g.Get("/:id/tickets/me", requireAuth, h.MyTicket)
}

func (h *RoundHandler) List(c *fiber.Ctx) error {
	rounds, err := h.rounds.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(rounds)
}

func (h *RoundHandler) Get(c *fiber.Ctx) error {
	round, err := h.rounds.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(round)
}

func (h *RoundHandler) Create(c *fiber.Ctx) error {
	var in services.CreateRoundInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	round, err := h.rounds.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(round)
}

func (h *RoundHandler) Update(c *fiber.Ctx) error {
	var in services.UpdateRoundInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	round, err := h.rounds.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(round)
}

func (h *RoundHandler) Settle(c *fiber.Ctx) error {
	res, err := h.rounds.Settle(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *RoundHandler) Ranking(c *fiber.Ctx) error {
	entries, err := h.rankings.Round(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (h *RoundHandler) PlaceTicket(c *fiber.Ctx) error {
	var in services.PlaceTicketInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	ticket, err := h.tickets.Place(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ticket)
}

func (h *RoundHandler) MyTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Mine(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}
