//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/wanderplan/internal/adapters/postgres"
	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/pkg/config"
)

func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	t.Setenv("WANDERPLAN_ROUTING_PROVIDER", "estimate")
	cfg, err := config.Load("wanderplan-test")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	schema, err := os.ReadFile("../../../migrations/001_plan_runs.sql")
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, string(schema))
	require.NoError(t, err)
	return db
}

func TestRunRepo_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewRunRepo(db)
	ctx := context.Background()

	rec := &domain.RunRecord{
		ID:             uuid.NewString(),
		Query:          "ramen crawl",
		Transportation: domain.ModeWalk,
		DurationLimit:  120,
		Status:         domain.RunRunning,
		StartedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Start(ctx, rec))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunRunning, got.Status)
	assert.Nil(t, got.FinishedAt)

	finished := time.Now().UTC()
	rec.Status = domain.RunSucceeded
	rec.Attempts = 2
	rec.RetryCount = 1
	rec.TotalDuration = 150
	rec.OverBudget = true
	rec.FinishedAt = &finished
	require.NoError(t, repo.Finish(ctx, rec))

	got, err = repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, got.Status)
	assert.Equal(t, 150, got.TotalDuration)
	assert.True(t, got.OverBudget)
	assert.NotNil(t, got.FinishedAt)

	runs, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	assert.NotEmpty(t, runs)
}

func TestRunRepo_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewRunRepo(db)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	err = repo.Finish(context.Background(), &domain.RunRecord{ID: uuid.NewString(), Status: domain.RunFailed})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}
