package ports

import (
	"context"

	"github.com/samirrijal/wanderplan/internal/core/domain"
)

// Generation is the drafting collaborator's raw answer.
type Generation struct {
	Text   string
	Places []domain.PlaceRef
}

// TextGenerator turns a natural-language instruction into free text,
// optionally grounded on a place search.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*Generation, error)
}

// DirectionsProvider computes travel legs for an ordered route query.
type DirectionsProvider interface {
	Directions(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// RunEvent describes a stage transition of a run.
type RunEvent struct {
	RunID      string           `json:"run_id"`
	Stage      domain.Stage     `json:"stage"`
	Attempt    int              `json:"attempt"`
	RetryCount int              `json:"retry_count"`
	Duration   int              `json:"total_duration,omitempty"`
	OverBudget bool             `json:"over_budget,omitempty"`
	ErrorKind  domain.ErrorKind `json:"error_kind,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// RunObserver is notified every time a run changes stage.
type RunObserver interface {
	OnTransition(ctx context.Context, ev RunEvent) error
}

// RunRecorder keeps the audit trail of runs.
type RunRecorder interface {
	Start(ctx context.Context, rec *domain.RunRecord) error
	Finish(ctx context.Context, rec *domain.RunRecord) error
	GetByID(ctx context.Context, id string) (*domain.RunRecord, error)
	List(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, error)
}
