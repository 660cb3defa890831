package http

import (
	"context"
	"time"

	"github.com/samirrijal/wanderplan/internal/adapters/postgres"
	"github.com/samirrijal/wanderplan/internal/adapters/valkey"
	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/core/usecases"
)

// Planner runs one planning workflow to completion: the in-process
// usecases.PlanEngine or the Temporal-backed workflows.Planner.
type Planner interface {
	Run(ctx context.Context, req domain.PlanRequest) (*domain.PlanResult, error)
}

// RunEvents streams the stage transitions of a single run.
type RunEvents interface {
	SubscribeRun(ctx context.Context, runID string, handler func(ev ports.RunEvent)) (func(), error)
	IsConnected() bool
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Planner     Planner
	Runs        *usecases.RunService // nil when no audit store is configured
	Events      RunEvents            // nil when NATS is not configured
	DB          *postgres.DB
	Cache       *valkey.Cache
	PlanTimeout time.Duration
}
