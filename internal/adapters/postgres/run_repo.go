package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/wanderplan/internal/core/domain"
)

// RunRepo implements ports.RunRecorder on the plan_runs table.
type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Start(ctx context.Context, rec *domain.RunRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO plan_runs (id, query, transportation, duration_limit, return_to_start, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Query, string(rec.Transportation), rec.DurationLimit, rec.ReturnToStart,
		string(rec.Status), rec.StartedAt)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}
	return nil
}

func (r *RunRepo) Finish(ctx context.Context, rec *domain.RunRecord) error {
	var errorKind, totalDuration any
	if rec.ErrorKind != "" {
		errorKind = string(rec.ErrorKind)
	}
	if rec.Status == domain.RunSucceeded {
		totalDuration = rec.TotalDuration
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE plan_runs
		SET status = $2, error_kind = $3, attempts = $4, retry_count = $5,
		    total_duration = $6, over_budget = $7, finished_at = $8
		WHERE id = $1
	`, rec.ID, string(rec.Status), errorKind, rec.Attempts, rec.RetryCount,
		totalDuration, rec.OverBudget, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("update run %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: %w", rec.ID, domain.ErrRunNotFound)
	}
	return nil
}

const runColumns = `id::text, query, transportation, duration_limit, return_to_start, status,
	COALESCE(error_kind, ''), attempts, retry_count, COALESCE(total_duration, 0), over_budget,
	started_at, finished_at`

func (r *RunRepo) GetByID(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+runColumns+` FROM plan_runs WHERE id = $1`, id)
	rec, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns runs newest first together with the total count.
func (r *RunRepo) List(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM plan_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM plan_runs
		ORDER BY started_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runs := make([]domain.RunRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *rec)
	}
	return runs, total, rows.Err()
}

func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var rec domain.RunRecord
	var transportation, status, errorKind string
	if err := row.Scan(
		&rec.ID, &rec.Query, &transportation, &rec.DurationLimit, &rec.ReturnToStart, &status,
		&errorKind, &rec.Attempts, &rec.RetryCount, &rec.TotalDuration, &rec.OverBudget,
		&rec.StartedAt, &rec.FinishedAt,
	); err != nil {
		return nil, err
	}
	rec.Transportation = domain.TransportMode(transportation)
	rec.Status = domain.RunStatus(status)
	rec.ErrorKind = domain.ErrorKind(errorKind)
	return &rec, nil
}
