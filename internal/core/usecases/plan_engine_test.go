package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/core/usecases"
)

func newEngine(gen *mockGenerator, dirs *mockDirections, obs ports.RunObserver, rec ports.RunRecorder) *usecases.PlanEngine {
	drafts := usecases.NewDraftService(gen, "")
	reconciler := usecases.NewReconcileService(usecases.NewRoutingService(dirs, nil, 0))
	return usecases.NewPlanEngine(drafts, reconciler, obs, rec)
}

func fixedLegs(minutes int) *mockDirections {
	return &mockDirections{
		directionsFn: func(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error) {
			return legsFor(q, minutes), nil
		},
	}
}

func TestPlanEngine_AcceptsFirstDraft(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("Temple walk", 30, 30)}, nil
		},
	}
	obs := &mockObserver{}
	rec := &mockRecorder{}
	engine := newEngine(gen, fixedLegs(10), obs, rec)

	res, err := engine.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// stays 60 + 3 legs × 10 = 90, limit 120
	if res.Plan.TotalDuration != 90 {
		t.Errorf("expected routed total 90, got %d", res.Plan.TotalDuration)
	}
	if res.IsOverTime {
		t.Error("expected plan within budget")
	}
	if res.Attempts != 1 || gen.calls() != 1 {
		t.Errorf("expected a single drafting attempt, got %d", gen.calls())
	}
	if res.RunID == "" {
		t.Error("expected run id")
	}
	if len(res.RouteResult.Legs) != 3 {
		t.Errorf("expected 3 legs, got %d", len(res.RouteResult.Legs))
	}

	want := []domain.Stage{domain.StageDrafting, domain.StageReconciling, domain.StageReviewing, domain.StageDone}
	got := obs.stages()
	if len(got) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, got[i], want[i])
		}
	}

	if len(rec.started) != 1 || len(rec.finished) != 1 {
		t.Fatalf("expected one start and one finish, got %d/%d", len(rec.started), len(rec.finished))
	}
	fin := rec.finished[0]
	if fin.Status != domain.RunSucceeded || fin.TotalDuration != 90 || fin.FinishedAt == nil {
		t.Errorf("unexpected audit record: %+v", fin)
	}
	if fin.ID != res.RunID || rec.started[0].Status != domain.RunRunning {
		t.Errorf("audit records do not match run: %+v", rec.started[0])
	}
}

func TestPlanEngine_RetriesOnceThenAcceptsOverBudget(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("Too long", 100, 100)}, nil
		},
	}
	obs := &mockObserver{}
	engine := newEngine(gen, fixedLegs(0), obs, nil)

	req := validRequest()
	res, err := engine.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gen.calls() != 2 {
		t.Fatalf("expected exactly 2 drafting attempts, got %d", gen.calls())
	}
	if !res.IsOverTime {
		t.Error("expected over-time flag after exhausted retry")
	}
	if res.Plan.TotalDuration != 200 {
		t.Errorf("expected total 200, got %d", res.Plan.TotalDuration)
	}
	if res.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", res.Attempts)
	}

	second := gen.prompts[1]
	if !strings.Contains(second, "The plan takes 200 minutes") || !strings.Contains(second, "limit of 120 minutes") {
		t.Errorf("corrective prompt missing feedback: %q", second)
	}

	last := obs.events[len(obs.events)-1]
	if last.Stage != domain.StageDone || !last.OverBudget || last.RetryCount != 1 {
		t.Errorf("unexpected final event: %+v", last)
	}
}

func TestPlanEngine_RetrySucceeds(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			if call == 1 {
				return &ports.Generation{Text: draftJSON("Too long", 100, 100)}, nil
			}
			return &ports.Generation{Text: draftJSON("Shorter", 40, 40)}, nil
		},
	}
	engine := newEngine(gen, fixedLegs(5), nil, nil)

	res, err := engine.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Plan.Title != "Shorter" {
		t.Errorf("expected second draft, got %q", res.Plan.Title)
	}
	if res.IsOverTime {
		t.Error("expected plan within budget")
	}
}

func TestPlanEngine_WithinBufferNoRetry(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("Slightly long", 70, 70)}, nil
		},
	}
	engine := newEngine(gen, fixedLegs(0), nil, nil)

	res, err := engine.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls() != 1 {
		t.Errorf("expected no retry within buffer, got %d calls", gen.calls())
	}
	if !res.IsOverTime {
		t.Error("expected over-time flag for 140 > 120")
	}
}

func TestPlanEngine_MalformedDraftFailsWithoutRetry(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: "Here are some ideas: go to the park."}, nil
		},
	}
	dirs := fixedLegs(10)
	rec := &mockRecorder{}
	engine := newEngine(gen, dirs, nil, rec)

	res, err := engine.Run(context.Background(), validRequest())
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
	if domain.KindOf(err) != domain.KindDraft {
		t.Fatalf("expected draft error, got %v", err)
	}
	if !errors.Is(err, domain.ErrMalformed) {
		t.Errorf("expected ErrMalformed in chain, got %v", err)
	}
	if gen.calls() != 1 || len(dirs.queries) != 0 {
		t.Errorf("expected one draft and no routing, got %d/%d", gen.calls(), len(dirs.queries))
	}
	if len(rec.finished) != 1 || rec.finished[0].Status != domain.RunFailed || rec.finished[0].ErrorKind != domain.KindDraft {
		t.Errorf("unexpected audit record: %+v", rec.finished)
	}
}

func TestPlanEngine_RouteErrorFails(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("t", 30)}, nil
		},
	}
	dirs := &mockDirections{
		directionsFn: func(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error) {
			return nil, domain.ErrRouteStatus
		},
	}
	engine := newEngine(gen, dirs, nil, nil)

	res, err := engine.Run(context.Background(), validRequest())
	if res != nil {
		t.Errorf("expected no itinerary, got %+v", res)
	}
	if domain.KindOf(err) != domain.KindRoute {
		t.Fatalf("expected route error, got %v", err)
	}

	var pe *domain.PlanError
	if !errors.As(err, &pe) || pe.Stage != domain.StageReconciling {
		t.Errorf("expected failure during reconciling, got %+v", pe)
	}
}

func TestPlanEngine_CollaboratorTimeoutIsNotCancellation(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("t", 30)}, nil
		},
	}
	dirs := &mockDirections{
		directionsFn: func(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error) {
			return nil, fmt.Errorf("directions request: %w", context.DeadlineExceeded)
		},
	}
	engine := newEngine(gen, dirs, nil, nil)

	_, err := engine.Run(context.Background(), validRequest())
	if domain.KindOf(err) != domain.KindRoute {
		t.Fatalf("expected route error, got %v", err)
	}

	gen = &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return nil, fmt.Errorf("generate content: %w", context.DeadlineExceeded)
		},
	}
	engine = newEngine(gen, fixedLegs(1), nil, nil)

	_, err = engine.Run(context.Background(), validRequest())
	if domain.KindOf(err) != domain.KindDraft {
		t.Fatalf("expected draft error, got %v", err)
	}
}

func TestPlanEngine_InvalidRequest(t *testing.T) {
	gen := &mockGenerator{}
	engine := newEngine(gen, fixedLegs(1), nil, nil)

	req := validRequest()
	req.DurationLimit = 10
	_, err := engine.Run(context.Background(), req)

	if domain.KindOf(err) != domain.KindInput {
		t.Fatalf("expected input error, got %v", err)
	}
	if gen.calls() != 0 {
		t.Error("drafting must not run for invalid input")
	}
}

func TestPlanEngine_CancelAbortsInFlightCall(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			<-ctx.Done()
			return nil, errors.New("rpc aborted")
		},
	}
	rec := &mockRecorder{}
	engine := newEngine(gen, fixedLegs(1), nil, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := engine.Run(ctx, validRequest())
	if domain.KindOf(err) != domain.KindCanceled {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline in chain, got %v", err)
	}
	if len(rec.finished) != 1 || rec.finished[0].ErrorKind != domain.KindCanceled {
		t.Errorf("expected canceled run to be audited, got %+v", rec.finished)
	}
}

func TestPlanEngine_ObserverAndRecorderFailuresAreNotFatal(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("t", 30)}, nil
		},
	}
	obs := &mockObserver{err: errors.New("nats down")}
	rec := &mockRecorder{err: errors.New("db down")}
	engine := newEngine(gen, fixedLegs(5), obs, rec)

	if _, err := engine.Run(context.Background(), validRequest()); err != nil {
		t.Fatalf("side channel failures must not fail the run: %v", err)
	}
}

func TestPlanEngine_ConcurrentRunsAreIndependent(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("t", 30)}, nil
		},
	}
	engine := newEngine(gen, fixedLegs(5), nil, nil)

	const n = 8
	ids := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			res, err := engine.Run(context.Background(), validRequest())
			if err != nil {
				errs <- err
				return
			}
			ids <- res.RunID
		}()
	}

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case id := <-ids:
			if seen[id] {
				t.Fatalf("duplicate run id %s", id)
			}
			seen[id] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timed out")
		}
	}
}
