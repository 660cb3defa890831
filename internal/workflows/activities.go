package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/core/usecases"
)

// Activity names, as registered from PlanActivities.
const (
	ActivityDraft     = "Draft"
	ActivityReconcile = "Reconcile"
	ActivityReport    = "ReportTransition"
	ActivityStart     = "RecordStart"
	ActivityFinish    = "RecordFinish"
)

// DraftInput is what the drafting activity needs for one attempt.
type DraftInput struct {
	Request domain.PlanRequest
	History domain.Transcript
}

// DraftOutput is a normalized draft and the raw text it came from.
type DraftOutput struct {
	Itinerary *domain.Itinerary
	Raw       string
}

// ReconcileInput is the itinerary to route.
type ReconcileInput struct {
	Request   domain.PlanRequest
	Itinerary *domain.Itinerary
}

// ReconcileOutput is the itinerary with its routed total and the route.
type ReconcileOutput struct {
	Itinerary *domain.Itinerary
	Route     *domain.RouteResult
}

// PlanActivities holds the activity implementations for the plan workflow.
// Observer and Recorder may be nil.
type PlanActivities struct {
	Drafts     *usecases.DraftService
	Reconciler *usecases.ReconcileService
	Observer   ports.RunObserver
	Recorder   ports.RunRecorder
}

// Draft asks the drafting collaborator for one itinerary. Failures are never
// retried: a second draft is the reviewer's decision, not the transport's.
func (a *PlanActivities) Draft(ctx context.Context, in DraftInput) (*DraftOutput, error) {
	d, err := a.Drafts.Draft(ctx, in.Request, in.History)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), string(domain.KindDraft), nil)
	}
	return &DraftOutput{Itinerary: d.Itinerary, Raw: d.Raw}, nil
}

// Reconcile routes the itinerary and replaces its total with stay plus travel time.
func (a *PlanActivities) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileOutput, error) {
	it, route, err := a.Reconciler.Reconcile(ctx, in.Itinerary, in.Request)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), string(domain.KindRoute), nil)
	}
	return &ReconcileOutput{Itinerary: it, Route: route}, nil
}

// ReportTransition publishes a stage transition. Delivery is best-effort.
func (a *PlanActivities) ReportTransition(ctx context.Context, ev ports.RunEvent) error {
	if a.Observer == nil {
		return nil
	}
	if err := a.Observer.OnTransition(ctx, ev); err != nil {
		activity.GetLogger(ctx).Warn("run observer failed", "run_id", ev.RunID, "stage", ev.Stage, "error", err)
	}
	return nil
}

// RecordStart writes the opening audit entry of a run.
func (a *PlanActivities) RecordStart(ctx context.Context, rec domain.RunRecord) error {
	if a.Recorder == nil {
		return nil
	}
	if err := a.Recorder.Start(ctx, &rec); err != nil {
		return fmt.Errorf("record start of run %s: %w", rec.ID, err)
	}
	return nil
}

// RecordFinish writes the terminal audit entry of a run.
func (a *PlanActivities) RecordFinish(ctx context.Context, rec domain.RunRecord) error {
	if a.Recorder == nil {
		return nil
	}
	if err := a.Recorder.Finish(ctx, &rec); err != nil {
		return fmt.Errorf("record finish of run %s: %w", rec.ID, err)
	}
	return nil
}
