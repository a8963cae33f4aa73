package router

import (
	"context"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/AscendAI/creator-catalyst-sub000/internal/handler"
	"github.com/AscendAI/creator-catalyst-sub000/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health *handler.HealthHandler
	Payout *handler.PayoutHandler
	Cycle  *handler.CycleHandler
	Export *handler.ExportHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber
// app. Rate limiter state is released when ctx is cancelled.
func Setup(ctx context.Context, app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(corsOrigins))

	// Probes and metrics sit outside the API group and its limits
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	read := middleware.NewReadRateLimiter(ctx).Handler()
	recompute := middleware.NewRecomputeRateLimiter(ctx).Handler()
	bulk := middleware.NewBulkRecomputeRateLimiter(ctx).Handler()
	export := middleware.NewExportRateLimiter(ctx).Handler()

	api := app.Group("/api")

	// Cycle routes
	api.Get("/cycles", read, h.Cycle.List)
	api.Post("/cycles/:cycleId/recompute", bulk, h.Payout.RecomputeCycle)
	api.Get("/cycles/:cycleId/payouts/export", export, h.Export.Export)

	// Payout routes
	api.Get("/creators/:creatorId/payouts/:cycleId", read, h.Payout.Get)
	api.Get("/creators/:creatorId/payouts/:cycleId/preview", read, h.Payout.Preview)
	api.Post("/creators/:creatorId/payouts/:cycleId/recompute", recompute, h.Payout.Recompute)
}
