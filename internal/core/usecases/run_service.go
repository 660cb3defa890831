package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
)

const (
	defaultRunPageSize = 20
	maxRunPageSize     = 100
)

// RunService exposes the run audit trail.
type RunService struct {
	runs ports.RunRecorder
}

// NewRunService creates a new RunService.
func NewRunService(runs ports.RunRecorder) *RunService {
	return &RunService{runs: runs}
}

// List returns a page of runs, newest first, and the total number of runs.
// offset and limit are clamped to sane bounds; the effective limit is returned.
func (s *RunService) List(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultRunPageSize
	}
	if limit > maxRunPageSize {
		limit = maxRunPageSize
	}
	runs, total, err := s.runs.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, limit, fmt.Errorf("list runs: %w", err)
	}
	return runs, total, limit, nil
}

// Get returns one run by id, or domain.ErrRunNotFound.
func (s *RunService) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	return s.runs.GetByID(ctx, id)
}
