package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/pkg/logging"
	"github.com/samirrijal/wanderplan/internal/pkg/metrics"
	"github.com/samirrijal/wanderplan/internal/pkg/telemetry"
)

// PlanEngine runs the Draft → Reconcile → Review loop for one request at a
// time per call. Calls are independent and may run concurrently.
type PlanEngine struct {
	drafts     *DraftService
	reconciler *ReconcileService
	observer   ports.RunObserver // optional
	recorder   ports.RunRecorder // optional
}

// NewPlanEngine creates a new PlanEngine. observer and recorder may be nil.
func NewPlanEngine(drafts *DraftService, reconciler *ReconcileService, observer ports.RunObserver, recorder ports.RunRecorder) *PlanEngine {
	return &PlanEngine{
		drafts:     drafts,
		reconciler: reconciler,
		observer:   observer,
		recorder:   recorder,
	}
}

// Run validates req and drives a fresh run to Done or Failed. A failed run
// returns a *domain.PlanError and no partial itinerary. Canceling ctx aborts
// the in-flight collaborator call and fails the run with KindCanceled.
func (e *PlanEngine) Run(ctx context.Context, req domain.PlanRequest) (*domain.PlanResult, error) {
	if err := req.Validate(); err != nil {
		metrics.RunsTotal.WithLabelValues("input_error").Inc()
		return nil, err
	}

	st := domain.NewPlanState(uuid.NewString(), req)

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPlanRun, trace.WithAttributes(
		attribute.String(telemetry.AttrRunID, st.RunID),
		attribute.String(telemetry.AttrTransportation, string(req.Transportation)),
		attribute.Int(telemetry.AttrDurationLimit, req.DurationLimit),
		attribute.Bool(telemetry.AttrReturnToStart, req.ReturnToStart),
	))
	defer span.End()

	log := logging.FromContext(ctx).With(slog.String("run_id", st.RunID))
	ctx = logging.WithLogger(ctx, log)

	log.Info("plan run started",
		slog.String("transportation", string(req.Transportation)),
		slog.Int("limit", req.DurationLimit),
		slog.Bool("return_to_start", req.ReturnToStart),
	)

	rec := RecordFromState(st, time.Now().UTC())
	e.record(ctx, rec, true)
	e.notify(ctx, st)

	for !st.Terminal() {
		if err := ctx.Err(); err != nil {
			st.Abort(err)
			e.notify(ctx, st)
			break
		}

		stage := st.Stage
		started := time.Now()
		if err := e.step(ctx, st); err != nil {
			// Only reachable on a transition bug; the run cannot continue.
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("plan run aborted", "stage", stage, "error", err)
			return nil, err
		}
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
		e.notify(ctx, st)
	}

	res, err := st.Result()
	finished := time.Now().UTC()
	rec = RecordFromState(st, rec.StartedAt)
	rec.FinishedAt = &finished
	e.record(ctx, rec, false)
	observeOutcome(st)

	span.SetAttributes(
		attribute.Int(telemetry.AttrAttempt, st.Attempts),
		attribute.Int(telemetry.AttrRetryCount, st.RetryCount),
	)
	if err != nil {
		span.SetAttributes(attribute.String(telemetry.AttrErrorKind, string(domain.KindOf(err))))
		span.SetStatus(codes.Error, err.Error())
		log.Warn("plan run failed",
			slog.String("error_kind", string(domain.KindOf(err))),
			slog.Int("attempts", st.Attempts),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool(telemetry.AttrOverBudget, res.IsOverTime),
		attribute.Int(telemetry.AttrTotalDuration, res.Plan.TotalDuration),
	)
	log.Info("plan run finished",
		slog.Int("attempts", st.Attempts),
		slog.Int("retries", st.RetryCount),
		slog.Int("actual", res.Plan.TotalDuration),
		slog.Int("limit", req.DurationLimit),
		slog.Bool("over_budget", res.IsOverTime),
	)
	return res, nil
}

// step executes the stage st is currently in and applies its outcome.
func (e *PlanEngine) step(ctx context.Context, st *domain.PlanState) error {
	ctx, span := telemetry.Tracer().Start(ctx, stageSpan(st.Stage))
	defer span.End()

	switch st.Stage {
	case domain.StageDrafting:
		metrics.DraftAttempts.Inc()
		span.SetAttributes(attribute.Int(telemetry.AttrAttempt, st.Attempts+1))

		d, err := e.drafts.Draft(ctx, st.Request, st.History)
		if err != nil {
			span.RecordError(err)
			if ctx.Err() != nil {
				st.Abort(ctx.Err())
				return nil
			}
			return st.ApplyDraft(nil, "", err)
		}
		return st.ApplyDraft(d.Itinerary, d.Raw, nil)

	case domain.StageReconciling:
		it, route, err := e.reconciler.Reconcile(ctx, st.Itinerary, st.Request)
		if err != nil {
			span.RecordError(err)
			if ctx.Err() != nil {
				st.Abort(ctx.Err())
				return nil
			}
		}
		return st.ApplyRoute(it, route, err)

	case domain.StageReviewing:
		d := Review(st.Itinerary, st.Request.DurationLimit, st.RetryCount)
		diff := st.Itinerary.TotalDuration - st.Request.DurationLimit
		logging.FromContext(ctx).Info("plan reviewed",
			slog.String("verdict", string(d.Verdict)),
			slog.Int("actual", st.Itinerary.TotalDuration),
			slog.Int("limit", st.Request.DurationLimit),
			slog.Int("diff", diff),
			slog.Int("retry_count", st.RetryCount),
		)
		span.SetAttributes(attribute.String("plan.verdict", string(d.Verdict)))
		if d.Verdict == domain.VerdictRetry {
			metrics.Retries.Inc()
		}
		return st.ApplyDecision(d)

	default:
		return fmt.Errorf("%w: nothing to run in %s", domain.ErrIllegalTransition, st.Stage)
	}
}

func (e *PlanEngine) notify(ctx context.Context, st *domain.PlanState) {
	if e.observer == nil {
		return
	}
	if err := e.observer.OnTransition(ctx, EventFromState(st)); err != nil {
		logging.FromContext(ctx).Warn("run observer failed", "stage", st.Stage, "error", err)
	}
}

func (e *PlanEngine) record(ctx context.Context, rec *domain.RunRecord, start bool) {
	if e.recorder == nil {
		return
	}
	// The audit write must not be cut short by a canceled run.
	ctx = context.WithoutCancel(ctx)
	var err error
	if start {
		err = e.recorder.Start(ctx, rec)
	} else {
		err = e.recorder.Finish(ctx, rec)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("run audit write failed", "start", start, "error", err)
	}
}

// EventFromState describes the current stage of st for observers.
func EventFromState(st *domain.PlanState) ports.RunEvent {
	ev := ports.RunEvent{
		RunID:      st.RunID,
		Stage:      st.Stage,
		Attempt:    st.Attempts,
		RetryCount: st.RetryCount,
	}
	if st.Itinerary != nil && st.Route != nil {
		ev.Duration = st.Itinerary.TotalDuration
	}
	if st.OverBudget != nil {
		ev.OverBudget = *st.OverBudget
	}
	if st.Err != nil {
		ev.ErrorKind = st.Err.Kind
		ev.Message = st.Err.Error()
	}
	return ev
}

// RecordFromState builds the audit record for st.
func RecordFromState(st *domain.PlanState, startedAt time.Time) *domain.RunRecord {
	rec := &domain.RunRecord{
		ID:             st.RunID,
		Query:          st.Request.Query,
		Transportation: st.Request.Transportation,
		DurationLimit:  st.Request.DurationLimit,
		ReturnToStart:  st.Request.ReturnToStart,
		Status:         domain.RunRunning,
		Attempts:       st.Attempts,
		RetryCount:     st.RetryCount,
		StartedAt:      startedAt,
	}
	switch st.Stage {
	case domain.StageDone:
		rec.Status = domain.RunSucceeded
		rec.TotalDuration = st.Itinerary.TotalDuration
		rec.OverBudget = st.OverBudget != nil && *st.OverBudget
	case domain.StageFailed:
		rec.Status = domain.RunFailed
		if st.Err != nil {
			rec.ErrorKind = st.Err.Kind
		}
	}
	return rec
}

func observeOutcome(st *domain.PlanState) {
	switch {
	case st.Stage == domain.StageDone:
		metrics.RunsTotal.WithLabelValues("succeeded").Inc()
		if st.OverBudget != nil && *st.OverBudget {
			metrics.OverBudget.Inc()
		}
	case st.Err != nil:
		metrics.RunsTotal.WithLabelValues(string(st.Err.Kind) + "_error").Inc()
	}
}

func stageSpan(s domain.Stage) string {
	switch s {
	case domain.StageDrafting:
		return telemetry.SpanDraft
	case domain.StageReconciling:
		return telemetry.SpanReconcile
	default:
		return telemetry.SpanReview
	}
}
