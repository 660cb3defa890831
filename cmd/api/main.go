package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/wanderplan/internal/adapters/gemini"
	"github.com/samirrijal/wanderplan/internal/adapters/http"
	natsadapter "github.com/samirrijal/wanderplan/internal/adapters/nats"
	"github.com/samirrijal/wanderplan/internal/adapters/postgres"
	"github.com/samirrijal/wanderplan/internal/adapters/routing"
	"github.com/samirrijal/wanderplan/internal/adapters/valkey"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/core/usecases"
	"github.com/samirrijal/wanderplan/internal/pkg/config"
	"github.com/samirrijal/wanderplan/internal/pkg/logging"
	"github.com/samirrijal/wanderplan/internal/pkg/telemetry"
	"github.com/samirrijal/wanderplan/internal/workflows"
)

func main() {
	cfg, err := config.Load("wanderplan-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Drafting collaborator
	generator, err := gemini.New(ctx, gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Planner.Model,
		Temperature: cfg.Planner.Temperature,
		Timeout:     time.Duration(cfg.Planner.Timeout) * time.Second,
	})
	if err != nil {
		log.Fatalf("gemini: %v", err)
	}

	deps := &http.Dependencies{
		PlanTimeout: cfg.Server.PlanTimeoutDuration(),
	}

	// Database (run audit trail, optional)
	var recorder ports.RunRecorder
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("database unavailable, run history disabled", "error", err)
	} else {
		defer db.Close()
		runs := postgres.NewRunRepo(db)
		recorder = runs
		deps.DB = db
		deps.Runs = usecases.NewRunService(runs)
	}

	// Cache (routing results, optional)
	var routeCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, "wanderplan:")
	if err != nil {
		slog.Warn("valkey unavailable, routing cache disabled", "error", err)
	} else {
		defer cache.Close()
		routeCache = cache
		deps.Cache = cache
	}

	// NATS (progress events, optional)
	var observer ports.RunObserver
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, progress events disabled", "error", err)
	} else {
		defer pub.Close()
		observer = pub
	}
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, websocket relay disabled", "error", err)
	} else {
		defer sub.Close()
		deps.Events = sub
	}

	// Planner
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			log.Fatalf("temporal client: %v", err)
		}
		defer tc.Close()
		deps.Planner = workflows.NewPlanner(tc, cfg.Temporal.TaskQueue, time.Duration(cfg.Planner.Timeout)*time.Second)
		slog.Info("plans run on temporal", "task_queue", cfg.Temporal.TaskQueue)
	} else {
		routes := usecases.NewRoutingService(routing.NewProvider(cfg), routeCache, cfg.Routing.CacheTTLDuration())
		deps.Planner = usecases.NewPlanEngine(
			usecases.NewDraftService(generator, cfg.Planner.Region),
			usecases.NewReconcileService(routes),
			observer,
			recorder,
		)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Wanderplan API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "routing", cfg.Routing.Provider)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// In-flight plans may take up to the plan timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.PlanTimeoutDuration()+5*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
