package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/wanderplan/internal/adapters/gemini"
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
	cfg, err := config.Load("wanderplan-planworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	generator, err := gemini.New(ctx, gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Planner.Model,
		Temperature: cfg.Planner.Temperature,
		Timeout:     time.Duration(cfg.Planner.Timeout) * time.Second,
	})
	if err != nil {
		log.Fatalf("gemini: %v", err)
	}

	acts := &workflows.PlanActivities{
		Drafts: usecases.NewDraftService(generator, cfg.Planner.Region),
	}

	var routeCache ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr, "wanderplan:"); err != nil {
		slog.Warn("valkey unavailable, routing cache disabled", "error", err)
	} else {
		defer cache.Close()
		routeCache = cache
	}

	provider := routing.NewProvider(cfg)
	acts.Reconciler = usecases.NewReconcileService(
		usecases.NewRoutingService(provider, routeCache, cfg.Routing.CacheTTLDuration()),
	)

	if db, err := postgres.New(ctx, cfg.Database.DSN()); err != nil {
		slog.Warn("database unavailable, run history disabled", "error", err)
	} else {
		defer db.Close()
		acts.Recorder = postgres.NewRunRepo(db)
	}

	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, progress events disabled", "error", err)
	} else {
		defer pub.Close()
		acts.Observer = pub
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.PlanWorkflow)
	w.RegisterActivity(acts)

	slog.Info("plan worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
