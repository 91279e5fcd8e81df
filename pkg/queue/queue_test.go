package queue

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence/file"
)

// blockingRunner holds every run until released, so tests control slot
// occupancy deterministically.
type blockingRunner struct {
	mu      sync.Mutex
	release map[string]chan struct{}
	started chan string
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		release: make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

func (r *blockingRunner) Run(ctx context.Context, execution *models.Execution, _ *models.Workflow) error {
	r.mu.Lock()
	gate := make(chan struct{})
	r.release[execution.ID] = gate
	r.mu.Unlock()

	r.started <- execution.ID

	select {
	case <-gate:
		execution.Finish(models.ExecutionStatusCompleted)
	case <-ctx.Done():
		execution.Finish(models.ExecutionStatusCancelled)
	}

	return nil
}

func (r *blockingRunner) finish(executionID string) {
	r.mu.Lock()
	gate := r.release[executionID]
	r.mu.Unlock()

	close(gate)
}

func newTestQueue(t *testing.T, maxConcurrent int) (*AdmissionQueue, *blockingRunner, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	runner := newBlockingRunner()

	q := NewAdmissionQueue(store, runner, maxConcurrent, slog.Default())
	q.Start(context.Background())
	t.Cleanup(q.Stop)

	workflow := &models.Workflow{
		ID:     "wf-1",
		Name:   "Queue test",
		Status: models.WorkflowStatusActive,
		Steps:  []*models.WorkflowStep{{ID: "s1", Type: "noop"}},
	}
	require.NoError(t, store.WorkflowRepository().Save(context.Background(), workflow))

	return q, runner, store
}

func waitForStart(t *testing.T, runner *blockingRunner) string {
	t.Helper()

	select {
	case id := <-runner.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("no execution started in time")

		return ""
	}
}

func TestSubmitBeyondCapQueuesFIFO(t *testing.T) {
	q, runner, _ := newTestQueue(t, 5)
	ctx := context.Background()

	ids := make([]string, 0, 6)

	for range 6 {
		id, err := q.Submit(ctx, "wf-1", "user-1", SubmitOptions{})
		require.NoError(t, err)

		ids = append(ids, id)
	}

	startedNow := make(map[string]bool, 5)
	for range 5 {
		startedNow[waitForStart(t, runner)] = true
	}

	status := q.Status()
	assert.Equal(t, 5, status.Active)
	assert.Equal(t, 1, status.Queued)
	assert.Equal(t, 5, status.Max)

	// The sixth submission waits and must not have started.
	assert.False(t, startedNow[ids[5]])

	// Finishing one run promotes the queued execution.
	runner.finish(ids[0])
	assert.Equal(t, ids[5], waitForStart(t, runner))

	assert.Eventually(t, func() bool {
		s := q.Status()

		return s.Active == 5 && s.Queued == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitRejectsInactiveWorkflow(t *testing.T) {
	q, _, store := newTestQueue(t, 2)
	ctx := context.Background()

	disabled := &models.Workflow{ID: "wf-off", Status: models.WorkflowStatusDisabled}
	require.NoError(t, store.WorkflowRepository().Save(ctx, disabled))

	_, err := q.Submit(ctx, "wf-off", "user-1", SubmitOptions{})
	assert.ErrorIs(t, err, ErrWorkflowNotRunnable)
}

func TestSubmitUnknownWorkflowFails(t *testing.T) {
	q, _, _ := newTestQueue(t, 2)

	_, err := q.Submit(context.Background(), "wf-missing", "user-1", SubmitOptions{})
	assert.Error(t, err)
}

func TestCancelQueuedExecution(t *testing.T) {
	q, runner, store := newTestQueue(t, 1)
	ctx := context.Background()

	first, err := q.Submit(ctx, "wf-1", "user-1", SubmitOptions{})
	require.NoError(t, err)
	waitForStart(t, runner)

	second, err := q.Submit(ctx, "wf-1", "user-1", SubmitOptions{})
	require.NoError(t, err)

	assert.True(t, q.Cancel(second, "not needed"))

	persisted, err := store.ExecutionRepository().GetByID(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, persisted.Status)
	assert.Equal(t, "not needed", persisted.CancelReason)

	// The cancelled entry left the FIFO; nothing is promoted from it.
	runner.finish(first)
	assert.Eventually(t, func() bool {
		return q.Status().Active == 0 && q.Status().Queued == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCancelRunningExecutionStopsIt(t *testing.T) {
	q, runner, _ := newTestQueue(t, 1)
	ctx := context.Background()

	id, err := q.Submit(ctx, "wf-1", "user-1", SubmitOptions{})
	require.NoError(t, err)
	waitForStart(t, runner)

	assert.True(t, q.Cancel(id, "operator request"))

	assert.Eventually(t, func() bool {
		return q.Status().Active == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCancelUnknownExecutionReturnsFalse(t *testing.T) {
	q, _, _ := newTestQueue(t, 1)

	assert.False(t, q.Cancel("exec-unknown", "whatever"))
}

// steppingRunner keeps recording step results until released, standing in
// for a run that is mid-workflow while status queries arrive.
type steppingRunner struct {
	started chan *models.Execution
	release chan struct{}
}

func (r *steppingRunner) Run(ctx context.Context, execution *models.Execution, _ *models.Workflow) error {
	execution.Begin()
	r.started <- execution

	for i := 0; ; i++ {
		select {
		case <-r.release:
			execution.Finish(models.ExecutionStatusCompleted)

			return nil
		case <-ctx.Done():
			execution.Finish(models.ExecutionStatusCancelled)

			return nil
		default:
			execution.AdvanceTo(i)
			execution.RecordStep(models.StepResult{Index: i, StepID: "s1", Success: i%2 == 0})
			execution.MergeVariables(map[string]any{"iteration": i})
		}
	}
}

func TestStatusQueriesDuringActiveRun(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	runner := &steppingRunner{
		started: make(chan *models.Execution, 1),
		release: make(chan struct{}),
	}

	q := NewAdmissionQueue(store, runner, 1, slog.Default())
	q.Start(context.Background())
	t.Cleanup(q.Stop)

	ctx := context.Background()
	workflow := &models.Workflow{
		ID:     "wf-1",
		Status: models.WorkflowStatusActive,
		Steps:  []*models.WorkflowStep{{ID: "s1", Type: "noop"}},
	}
	require.NoError(t, store.WorkflowRepository().Save(ctx, workflow))

	id, err := q.Submit(ctx, "wf-1", "user-1", SubmitOptions{})
	require.NoError(t, err)

	var execution *models.Execution
	select {
	case execution = <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not start")
	}

	// Poll live status while the runner records steps; recorded work only
	// ever grows.
	lastSeen := 0
	deadline := time.Now().Add(100 * time.Millisecond)

	for time.Now().Before(deadline) {
		tracked, ok := q.Snapshot(id)
		require.True(t, ok)

		snapshot := tracked.Snapshot()
		assert.Equal(t, id, snapshot.ID)

		recorded := snapshot.StepsCompleted + snapshot.StepsFailed
		assert.GreaterOrEqual(t, recorded, lastSeen)
		lastSeen = recorded

		for _, active := range q.ActiveExecutions() {
			active.Snapshot()
		}
	}

	close(runner.release)

	assert.Eventually(t, func() bool {
		return q.Status().Active == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Snapshot().Status)
}

func TestCompletionCallbackObservesFinishedRuns(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	runner := newBlockingRunner()

	finished := make(chan string, 1)

	q := NewAdmissionQueue(store, runner, 1, slog.Default())
	q.SetCompletionCallback(func(execution *models.Execution) {
		finished <- execution.ID
	})
	q.Start(context.Background())
	t.Cleanup(q.Stop)

	ctx := context.Background()
	workflow := &models.Workflow{ID: "wf-1", Status: models.WorkflowStatusActive}
	require.NoError(t, store.WorkflowRepository().Save(ctx, workflow))

	id, err := q.Submit(ctx, "wf-1", "user-1", SubmitOptions{})
	require.NoError(t, err)
	waitForStart(t, runner)
	runner.finish(id)

	select {
	case got := <-finished:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback not invoked")
	}
}
