package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"fantasy12/auth"
	"fantasy12/metrics"
	"fantasy12/middleware"
	"fantasy12/ratelimit"
	"fantasy12/services"
	"fantasy12/store"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Store    store.Store
	Tokens   auth.TokenManager
	Limiter  *ratelimit.Limiter
	Audit    *services.AuditService
	Auth     *services.AuthService
	Users    *services.UserService
	Rounds   *services.RoundService
	Tickets  *services.TicketService
	Pools    *services.PoolService
	Rankings *services.RankingService
	Payments *services.PaymentService
	Shop     *services.ShopService
}

type Options struct {
	Production     bool
	BodyLimit      int
	AllowedOrigins string
	// AccessLog enables the per-request log line.
	AccessLog bool
}

// New builds the fiber application with every route mounted both at the
// root and under /api.
func New(d Deps, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "fantasy12",
		BodyLimit:    opts.BodyLimit,
		ErrorHandler: ErrorHandler(opts.Production),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.Middleware())
	if opts.AccessLog {
		app.Use(middleware.RequestLogger())
	}
	if opts.AllowedOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent",
			ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After",
			AllowCredentials: true,
			MaxAge:           86400,
		}))
	}

	SetupSystemRoutes(app, d.Store)

	app.Use(middleware.RateLimit(d.Limiter, ratelimit.General.Name))

	requireAuth := middleware.Authenticate(d.Tokens)
	optionalAuth := middleware.OptionalAuth(d.Tokens)
	requireAdmin := middleware.RequireAdmin(d.Store)

	for _, r := range []fiber.Router{app.Group("/api"), app} {
		SetupAuthRoutes(r, d.Auth, d.Limiter, requireAuth)
		SetupUserRoutes(r, d.Users, d.Limiter, requireAuth, optionalAuth)
		SetupRoundRoutes(r, d.Rounds, d.Tickets, d.Rankings, requireAuth, requireAdmin)
		SetupPoolRoutes(r, d.Pools, d.Rankings, requireAuth)
		SetupRankingRoutes(r, d.Rankings)
		SetupLogRoutes(r, d.Audit)
		SetupPaymentRoutes(r, d.Payments, d.Limiter)
		SetupShopRoutes(r, d.Shop, requireAuth)
		SetupAdminRoutes(r, d.Users, requireAuth, requireAdmin)
	}

	app.Use(NotFound)
	return app
}
