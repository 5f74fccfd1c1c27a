package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"fantasy12/metrics"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func SetupSystemRoutes(app *fiber.App, db Pinger) {
	app.Get("/", Index)
	app.Get("/health", Health(db))
	app.Get("/metrics", metrics.Handler())
}

func Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":    "Fantasy12 API",
		"version": "1.0.0",
		"endpoints": fiber.Map{
			"auth":     []string{"POST /auth/register", "POST /auth/login", "GET /auth/me", "POST /auth/logout"},
			"users":    []string{"GET /users", "POST /users", "GET /users/:id", "PUT /users/:id", "DELETE /users/:id", "GET /users/:id/transactions"},
			"rounds":   []string{"GET /rounds", "POST /rounds", "GET /rounds/:id", "PUT /rounds/:id", "POST /rounds/:id/settle", "GET /rounds/:id/ranking", "POST /rounds/:id/tickets", "GET /rounds/:id/tickets/me"},
			"pools":    []string{"GET /pools", "POST /pools", "GET /pools/:id", "POST /pools/:id/join", "POST /pools/:id/close", "GET /pools/:id/ranking"},
			"rankings": []string{"GET /rankings?scope=general|pro"},
			"logs":     []string{"GET /logs", "POST /logs"},
			"payments": []string{"GET /payments/packages", "POST /payments/process", "POST /payments/webhook", "POST /payments/stripe"},
			"store":    []string{"GET /store/powerups", "POST /store/powerups"},
			"admin":    []string{"PUT /admin/users/:id"},
		},
	})
}

// Health pings the database and reports its latency. It answers 503 when
// the ping fails.
func Health(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		start := time.Now()
		err := db.Ping(ctx)
		latency := time.Since(start)

		body := fiber.Map{
			"timestamp": time.Now().UTC(),
			"database": fiber.Map{
				"latencyMs": latency.Milliseconds(),
			},
		}
		if err != nil {
			body["status"] = "unhealthy"
			body["database"].(fiber.Map)["error"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
		body["status"] = "healthy"
		return c.JSON(body)
	}
}
