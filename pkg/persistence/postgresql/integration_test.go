package postgresql_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
	"github.com/flowkite/flowkite/pkg/persistence/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if os.Getenv("FLOWKITE_INTEGRATION_TESTS") == "" {
		t.Skip("set FLOWKITE_INTEGRATION_TESTS to run testcontainers-backed tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("flowkite_test"),
		tcpostgres.WithUsername("flowkite"),
		tcpostgres.WithPassword("flowkite"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = p.Close(ctx)
		cancel()
	})

	return p, ctx
}

func TestPostgresPersistence_ExecutionLifecycle(t *testing.T) {
	p, ctx := setupTestDB(t)

	workflow := &models.Workflow{
		ID:     uuid.New().String(),
		Name:   "Integration workflow",
		Status: models.WorkflowStatusActive,
		Steps: []*models.WorkflowStep{
			{ID: "s1", Type: models.StepTypeNavigate, Configuration: map[string]any{"url": "https://example.com"}},
			{ID: "s2", Type: models.StepTypeExtractText, Configuration: map[string]any{"selector": "h1"}},
		},
		Variables: map[string]any{"region": "eu"},
		Owner:     "user-1",
	}

	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	execution := models.NewExecution(workflow, "user-1", "manual", map[string]any{"region": "us"})
	require.NoError(t, p.ExecutionRepository().Create(ctx, execution))

	execution.Status = models.ExecutionStatusCompleted
	execution.StartedAt = time.Now().UTC()
	finished := execution.StartedAt.Add(3 * time.Second)
	execution.FinishedAt = &finished
	execution.StepResults = []models.StepResult{
		{Index: 0, StepID: "s1", Type: models.StepTypeNavigate, Success: true},
		{Index: 1, StepID: "s2", Type: models.StepTypeExtractText, Success: true, Result: "Example Domain"},
	}
	require.NoError(t, p.ExecutionRepository().Update(ctx, execution))

	loaded, err := p.ExecutionRepository().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
	assert.Len(t, loaded.StepResults, 2)
	assert.Equal(t, "us", loaded.Variables["region"])

	list, err := p.ExecutionRepository().ListByWorkflow(ctx, workflow.ID, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgresPersistence_ScheduleRoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)

	job := &models.ScheduledJob{
		WorkflowID: uuid.New().String(),
		Owner:      "user-1",
		Config:     models.ScheduleConfig{Kind: models.ScheduleKindWeekly, Time: "08:30", Weekday: "monday"},
		Enabled:    true,
		NextRun:    time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}

	require.NoError(t, p.ScheduleRepository().Save(ctx, job))

	loaded, err := p.ScheduleRepository().GetByWorkflowID(ctx, job.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleKindWeekly, loaded.Config.Kind)
	assert.Equal(t, "monday", loaded.Config.Weekday)

	require.NoError(t, p.ScheduleRepository().Delete(ctx, job.WorkflowID))

	_, err = p.ScheduleRepository().GetByWorkflowID(ctx, job.WorkflowID)
	assert.True(t, persistence.IsScheduleNotFound(err))
}
