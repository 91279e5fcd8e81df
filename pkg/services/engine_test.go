package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence/file"
	"github.com/flowkite/flowkite/pkg/protocol"
	"github.com/flowkite/flowkite/pkg/queue"
	"github.com/flowkite/flowkite/pkg/registry"
	"github.com/flowkite/flowkite/pkg/runner"
	"github.com/flowkite/flowkite/pkg/scheduler"
)

type noopStep struct{}

func (s *noopStep) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (*models.StepOutput, error) {
	return &models.StepOutput{Success: true}, nil
}

type noopFactory struct{}

func (f *noopFactory) ID() string             { return "noop" }
func (f *noopFactory) Name() string           { return "Noop" }
func (f *noopFactory) Description() string    { return "Does nothing." }
func (f *noopFactory) Schema() map[string]any { return nil }

func (f *noopFactory) Create(_ map[string]any) (protocol.Step, error) {
	return &noopStep{}, nil
}

func newTestEngine(t *testing.T) (*Engine, *file.Persistence) {
	t.Helper()

	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())

	stepRegistry := registry.NewRegistry(logger)
	stepRegistry.RegisterStep(&noopFactory{})

	workflowRunner := runner.NewRunner(store, stepRegistry, nil, nil, nil, logger)

	admissionQueue := queue.NewAdmissionQueue(store, workflowRunner, 2, logger)
	admissionQueue.Start(context.Background())
	t.Cleanup(admissionQueue.Stop)

	workflowScheduler := scheduler.NewScheduler(store, admissionQueue, logger)

	engine := NewEngine(store, admissionQueue, workflowScheduler, logger)

	workflow := &models.Workflow{
		ID:     "wf-1",
		Name:   "Engine test",
		Status: models.WorkflowStatusActive,
		Steps:  []*models.WorkflowStep{{ID: "s1", Type: "noop"}},
	}
	require.NoError(t, store.WorkflowRepository().Save(context.Background(), workflow))

	return engine, store
}

func TestExecuteRunsWorkflowToCompletion(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	executionID, err := engine.Execute(ctx, "wf-1", "user-1", ExecuteOptions{
		Variables: map[string]any{"region": "eu"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, executionID)

	assert.Eventually(t, func() bool {
		execution, err := store.ExecutionRepository().GetByID(ctx, executionID)

		return err == nil && execution.Status == models.ExecutionStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExecuteValidatesArguments(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Execute(ctx, "", "user-1", ExecuteOptions{})
	assert.True(t, IsValidationError(err))

	_, err = engine.Execute(ctx, "wf-1", "", ExecuteOptions{})
	assert.True(t, IsValidationError(err))
}

func TestGetExecutionStatusUnknownIDReturnsNil(t *testing.T) {
	engine, _ := newTestEngine(t)

	snapshot, err := engine.GetExecutionStatus(context.Background(), "exec-unknown")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestGetExecutionStatusAfterCompletion(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	executionID, err := engine.Execute(ctx, "wf-1", "user-1", ExecuteOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		execution, err := store.ExecutionRepository().GetByID(ctx, executionID)

		return err == nil && execution.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	snapshot, err := engine.GetExecutionStatus(ctx, executionID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, models.ExecutionStatusCompleted, snapshot.Status)
	assert.Equal(t, 1, snapshot.StepsCompleted)
	assert.Equal(t, 0, snapshot.StepsFailed)
}

func TestCancelExecutionUnknownReturnsFalse(t *testing.T) {
	engine, _ := newTestEngine(t)

	assert.False(t, engine.CancelExecution(context.Background(), "exec-unknown", "because"))
}

func TestScheduleAndUnscheduleWorkflow(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	job, err := engine.ScheduleWorkflow(ctx, "wf-1", models.ScheduleConfig{
		Kind: models.ScheduleKindDaily,
		Time: "08:30",
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", job.WorkflowID)

	assert.Equal(t, 1, engine.GetSchedulerStatus().JobCount)

	require.NoError(t, engine.UnscheduleWorkflow(ctx, "wf-1"))
	assert.Equal(t, 0, engine.GetSchedulerStatus().JobCount)
}

func TestScheduleWorkflowInvalidConfigIsValidationError(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.ScheduleWorkflow(context.Background(), "wf-1", models.ScheduleConfig{
		Kind: models.ScheduleKindWeekly,
		Time: "25:99",
	}, "user-1")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestQueueStatusReportsCap(t *testing.T) {
	engine, _ := newTestEngine(t)

	status := engine.GetQueueStatus()
	assert.Equal(t, 2, status.Max)
	assert.Equal(t, 0, status.Queued)
}
