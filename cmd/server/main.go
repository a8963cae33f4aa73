package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/AscendAI/creator-catalyst-sub000/internal/config"
	"github.com/AscendAI/creator-catalyst-sub000/internal/db"
	"github.com/AscendAI/creator-catalyst-sub000/internal/handler"
	"github.com/AscendAI/creator-catalyst-sub000/internal/metrics"
	"github.com/AscendAI/creator-catalyst-sub000/internal/middleware"
	"github.com/AscendAI/creator-catalyst-sub000/internal/payout"
	"github.com/AscendAI/creator-catalyst-sub000/internal/repository"
	"github.com/AscendAI/creator-catalyst-sub000/internal/router"
	"github.com/AscendAI/creator-catalyst-sub000/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		middleware.InitLogger("info", "payouts")
		middleware.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	middleware.InitLogger(cfg.LogLevel, "payouts")
	log := middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("schema applied")
	}

	metrics.Init(pool)

	cache := service.NewCacheService(cfg.RedisURL, log)
	defer cache.Close()

	videoRepo := repository.NewVideoRepo(pool)
	cycleRepo := repository.NewCycleRepo(pool)
	settingsRepo := repository.NewSettingsRepo(pool)
	payoutRepo := repository.NewPayoutRepo(pool)

	engine := payout.NewAggregator(
		videoRepo,
		cycleRepo,
		payout.NewRateResolver(settingsRepo, settingsRepo, payoutRepo),
	)

	payoutSvc := service.NewPayoutService(service.PayoutServiceConfig{
		Engine:      engine,
		Cycles:      cycleRepo,
		Store:       payoutRepo,
		Creators:    videoRepo,
		Cache:       cache,
		Concurrency: cfg.RecomputeConcurrency,
		Logger:      log,
	})
	cycleSvc := service.NewCycleService(cycleRepo, settingsRepo, log)

	var workers sync.WaitGroup
	cycleWorker := service.NewCycleWorker(cycleSvc, payoutSvc, cfg.CycleSweepInterval, log)
	videoWorker := service.NewVideoChangeWorker(pool, payoutSvc, cycleSvc, cfg.VideoChangeBatchWindow, log)
	workers.Add(2)
	go func() {
		defer workers.Done()
		cycleWorker.Start(ctx)
	}()
	go func() {
		defer workers.Done()
		videoWorker.Start(ctx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      "Creator Payouts API",
		ServerHeader: "payouts",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	})

	router.Setup(ctx, app, &router.Handlers{
		Health: handler.NewHealthHandler(pool, cache.Client()),
		Payout: handler.NewPayoutHandler(payoutSvc),
		Cycle:  handler.NewCycleHandler(cycleSvc),
		Export: handler.NewExportHandler(payoutSvc),
	}, cfg.CORSOrigins)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Environment).
		Int("recompute_concurrency", cfg.RecomputeConcurrency).
		Msg("payout service starting")

	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()}); err != nil {
		log.Error().Err(err).Msg("http server stopped")
	}

	stop()
	workers.Wait()
	log.Info().Msg("stopped")
}
