package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/usecases"
)

// DefaultStageTimeout bounds a single drafting or routing activity.
const DefaultStageTimeout = 90 * time.Second

// PlanInput is the input for the plan workflow.
type PlanInput struct {
	RunID        string
	Request      domain.PlanRequest
	StageTimeout time.Duration // zero means DefaultStageTimeout
}

// Failure describes why a run ended in Failed.
type Failure struct {
	Kind    domain.ErrorKind
	Stage   domain.Stage
	Message string
}

// PlanOutput is the terminal outcome of a run: exactly one of Result and
// Failure is set.
type PlanOutput struct {
	Result  *domain.PlanResult
	Failure *Failure
}

// Err rebuilds the run's *domain.PlanError, or nil for a successful run.
func (o *PlanOutput) Err() error {
	if o.Failure == nil {
		return nil
	}
	return &domain.PlanError{
		Kind:  o.Failure.Kind,
		Stage: o.Failure.Stage,
		Err:   errors.New(o.Failure.Message),
	}
}

func failureOf(err error) *Failure {
	var pe *domain.PlanError
	if errors.As(err, &pe) {
		msg := ""
		if pe.Err != nil {
			msg = pe.Err.Error()
		}
		return &Failure{Kind: pe.Kind, Stage: pe.Stage, Message: msg}
	}
	return &Failure{Message: err.Error()}
}

// PlanWorkflow drives one run through Drafting, Reconciling and Reviewing
// with the same transitions as the in-process engine. Drafting and routing
// run as activities without retries; the review is pure and runs inline.
// A failed run completes the workflow with a Failure instead of an error.
func PlanWorkflow(ctx workflow.Context, input PlanInput) (*PlanOutput, error) {
	logger := workflow.GetLogger(ctx)

	if err := input.Request.Validate(); err != nil {
		return &PlanOutput{Failure: failureOf(err)}, nil
	}

	runID := input.RunID
	if runID == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	st := domain.NewPlanState(runID, input.Request)
	startedAt := workflow.Now(ctx).UTC()
	logger.Info("Starting plan workflow", "runID", runID, "limit", input.Request.DurationLimit)

	timeout := input.StageTimeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	stageCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	// Bookkeeping keeps running after a cancellation so the last transition
	// and the audit entry are still written.
	bookCtx := workflow.WithActivityOptions(workflow.NewDisconnectedContext(ctx), workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	report := func() {
		if err := workflow.ExecuteActivity(bookCtx, ActivityReport, usecases.EventFromState(st)).Get(bookCtx, nil); err != nil {
			logger.Warn("report transition failed", "stage", st.Stage, "error", err)
		}
	}

	if err := workflow.ExecuteActivity(bookCtx, ActivityStart, *usecases.RecordFromState(st, startedAt)).Get(bookCtx, nil); err != nil {
		logger.Warn("record start failed", "error", err)
	}
	report()

	for !st.Terminal() {
		if err := ctx.Err(); err != nil {
			st.Abort(err)
			report()
			break
		}

		var err error
		switch st.Stage {
		case domain.StageDrafting:
			var out DraftOutput
			actErr := workflow.ExecuteActivity(stageCtx, ActivityDraft, DraftInput{
				Request: st.Request,
				History: st.History,
			}).Get(ctx, &out)
			switch {
			case actErr != nil && ctx.Err() != nil:
				st.Abort(ctx.Err())
			case actErr != nil:
				err = st.ApplyDraft(nil, "", activityCause(actErr))
			default:
				err = st.ApplyDraft(out.Itinerary, out.Raw, nil)
			}

		case domain.StageReconciling:
			var out ReconcileOutput
			actErr := workflow.ExecuteActivity(stageCtx, ActivityReconcile, ReconcileInput{
				Request:   st.Request,
				Itinerary: st.Itinerary,
			}).Get(ctx, &out)
			switch {
			case actErr != nil && ctx.Err() != nil:
				st.Abort(ctx.Err())
			case actErr != nil:
				err = st.ApplyRoute(nil, nil, activityCause(actErr))
			default:
				err = st.ApplyRoute(out.Itinerary, out.Route, nil)
			}

		case domain.StageReviewing:
			d := usecases.Review(st.Itinerary, st.Request.DurationLimit, st.RetryCount)
			logger.Info("Plan reviewed",
				"verdict", d.Verdict,
				"actual", st.Itinerary.TotalDuration,
				"limit", st.Request.DurationLimit,
				"retryCount", st.RetryCount,
			)
			err = st.ApplyDecision(d)
		}
		if err != nil {
			return nil, err
		}
		report()
	}

	rec := usecases.RecordFromState(st, startedAt)
	finished := workflow.Now(ctx).UTC()
	rec.FinishedAt = &finished
	if err := workflow.ExecuteActivity(bookCtx, ActivityFinish, *rec).Get(bookCtx, nil); err != nil {
		logger.Warn("record finish failed", "error", err)
	}

	res, err := st.Result()
	if err != nil {
		logger.Warn("Plan workflow failed", "kind", domain.KindOf(err), "error", err)
		return &PlanOutput{Failure: failureOf(err)}, nil
	}
	logger.Info("Plan workflow finished", "attempts", res.Attempts, "overBudget", res.IsOverTime)
	return &PlanOutput{Result: res}, nil
}

// activityCause strips the activity and application error wrappers so the
// run's error reads like the in-process one.
func activityCause(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return errors.New(appErr.Error())
	}
	return err
}
