package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/pkg/logging"
)

// WorkflowID is the Temporal workflow id of a run.
func WorkflowID(runID string) string { return "plan-" + runID }

// Planner runs plans on a Temporal worker instead of in-process.
type Planner struct {
	client       client.Client
	taskQueue    string
	stageTimeout time.Duration
}

// NewPlanner creates a Planner that starts workflows on taskQueue.
func NewPlanner(c client.Client, taskQueue string, stageTimeout time.Duration) *Planner {
	return &Planner{client: c, taskQueue: taskQueue, stageTimeout: stageTimeout}
}

// Run starts a PlanWorkflow and waits for its outcome. Input errors are
// reported without starting a workflow. If ctx ends first the workflow is
// canceled and the run fails with KindCanceled.
func (p *Planner) Run(ctx context.Context, req domain.PlanRequest) (*domain.PlanResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(runID),
		TaskQueue: p.taskQueue,
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts.WorkflowExecutionTimeout = time.Until(deadline)
	}

	run, err := p.client.ExecuteWorkflow(ctx, opts, PlanWorkflow, PlanInput{
		RunID:        runID,
		Request:      req,
		StageTimeout: p.stageTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("start plan workflow: %w", err)
	}

	var out PlanOutput
	if err := run.Get(ctx, &out); err != nil {
		if ctx.Err() != nil {
			if cerr := p.client.CancelWorkflow(context.WithoutCancel(ctx), run.GetID(), run.GetRunID()); cerr != nil {
				logging.FromContext(ctx).Warn("cancel plan workflow", "workflow_id", run.GetID(), "error", cerr)
			}
			return nil, domain.NewPlanError(domain.KindCanceled, "", ctx.Err())
		}
		return nil, fmt.Errorf("plan workflow %s: %w", run.GetID(), err)
	}
	if err := out.Err(); err != nil {
		return nil, err
	}
	return out.Result, nil
}
