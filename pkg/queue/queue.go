// Package queue admits executions under a fixed concurrency cap. Submissions
// beyond the cap wait in FIFO order; a periodic drain tick plus completion
// wake signals promote them as slots free up.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
)

const drainInterval = 1 * time.Second

var (
	// ErrWorkflowNotRunnable is returned when the workflow is not active.
	ErrWorkflowNotRunnable = errors.New("workflow is not active")

	// ErrQueueClosed is returned after Stop.
	ErrQueueClosed = errors.New("admission queue is stopped")
)

// Runner executes one admitted execution to its terminal state.
type Runner interface {
	Run(ctx context.Context, execution *models.Execution, workflow *models.Workflow) error
}

// SubmitOptions carries caller-provided trigger metadata.
type SubmitOptions struct {
	Variables map[string]any
	Trigger   string
}

// Status is the queue's point-in-time occupancy.
type Status struct {
	Active int `json:"active"`
	Queued int `json:"queued"`
	Max    int `json:"max"`
}

type activeRun struct {
	execution *models.Execution
	cancel    context.CancelFunc
}

type pendingRun struct {
	execution *models.Execution
	workflow  *models.Workflow
}

// AdmissionQueue owns the active set and the pending FIFO. An execution is
// in exactly one of the two at any time.
type AdmissionQueue struct {
	persistence persistence.Persistence
	runner      Runner
	max         int
	logger      *slog.Logger

	// onComplete, when set, observes every execution leaving the active set.
	onComplete func(execution *models.Execution)

	mu      sync.Mutex
	active  map[string]*activeRun
	pending []*pendingRun
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func NewAdmissionQueue(store persistence.Persistence, runner Runner, maxConcurrent int, logger *slog.Logger) *AdmissionQueue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &AdmissionQueue{
		persistence: store,
		runner:      runner,
		max:         maxConcurrent,
		logger:      logger.With("module", "admission_queue"),
		active:      make(map[string]*activeRun),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// SetCompletionCallback registers an observer for finished executions. Must
// be called before Start.
func (q *AdmissionQueue) SetCompletionCallback(callback func(execution *models.Execution)) {
	q.onComplete = callback
}

// Start launches the drain loop: a 1s tick plus wake signals from finishing
// runs.
func (q *AdmissionQueue) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(drainInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			case <-ticker.C:
				q.drain()
			case <-q.wake:
				q.drain()
			}
		}
	}()
}

// Submit validates the workflow, creates a pending execution record and
// either starts it immediately or parks it in the FIFO. It returns the new
// execution's id either way.
func (q *AdmissionQueue) Submit(ctx context.Context, workflowID, owner string, options SubmitOptions) (string, error) {
	workflow, err := q.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if !workflow.Runnable() {
		return "", fmt.Errorf("workflow %s: %w", workflowID, ErrWorkflowNotRunnable)
	}

	trigger := options.Trigger
	if trigger == "" {
		trigger = "manual"
	}

	execution := models.NewExecution(workflow, owner, trigger, options.Variables)

	if err := q.persistence.ExecutionRepository().Create(ctx, execution); err != nil {
		return "", fmt.Errorf("failed to persist execution %s: %w", execution.ID, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrQueueClosed
	}

	if len(q.active) < q.max {
		q.startLocked(execution, workflow)
		q.logger.Info("Execution admitted",
			"execution_id", execution.ID,
			"workflow_id", workflowID,
			"active", len(q.active))
	} else {
		q.pending = append(q.pending, &pendingRun{execution: execution, workflow: workflow})
		q.logger.Info("Execution queued",
			"execution_id", execution.ID,
			"workflow_id", workflowID,
			"queued", len(q.pending))
	}

	return execution.ID, nil
}

// Cancel removes a queued execution or asks a running one to stop. Returns
// false when the execution is in neither place.
func (q *AdmissionQueue) Cancel(executionID, reason string) bool {
	q.mu.Lock()

	if run, exists := q.active[executionID]; exists {
		run.execution.SetCancelReason(reason)
		run.cancel()
		q.mu.Unlock()

		q.logger.Info("Cancellation requested for running execution",
			"execution_id", executionID, "reason", reason)

		return true
	}

	for i, pending := range q.pending {
		if pending.execution.ID != executionID {
			continue
		}

		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		q.mu.Unlock()

		q.cancelPendingRecord(pending.execution, reason)

		return true
	}

	q.mu.Unlock()

	return false
}

// Snapshot returns the tracked execution if it is active or queued.
func (q *AdmissionQueue) Snapshot(executionID string) (*models.Execution, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if run, exists := q.active[executionID]; exists {
		return run.execution, true
	}

	for _, pending := range q.pending {
		if pending.execution.ID == executionID {
			return pending.execution, true
		}
	}

	return nil, false
}

// ActiveExecutions lists the executions currently holding slots.
func (q *AdmissionQueue) ActiveExecutions() []*models.Execution {
	q.mu.Lock()
	defer q.mu.Unlock()

	executions := make([]*models.Execution, 0, len(q.active))
	for _, run := range q.active {
		executions = append(executions, run.execution)
	}

	return executions
}

// Status reports current occupancy.
func (q *AdmissionQueue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Status{
		Active: len(q.active),
		Queued: len(q.pending),
		Max:    q.max,
	}
}

// Stop prevents new admissions, cancels running executions and waits for
// them to finish.
func (q *AdmissionQueue) Stop() {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()

		return
	}

	q.closed = true
	close(q.done)

	for _, run := range q.active {
		run.execution.EnsureCancelReason("shutdown")
		run.cancel()
	}

	parked := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, pending := range parked {
		q.cancelPendingRecord(pending.execution, "shutdown")
	}

	q.wg.Wait()
}

// startLocked reserves an active slot and launches the run. Caller holds
// q.mu.
func (q *AdmissionQueue) startLocked(execution *models.Execution, workflow *models.Workflow) {
	runCtx, cancel := context.WithCancel(context.Background())
	q.active[execution.ID] = &activeRun{execution: execution, cancel: cancel}

	q.wg.Add(1)

	go func() {
		defer q.wg.Done()
		defer cancel()

		if err := q.runner.Run(runCtx, execution, workflow); err != nil {
			q.logger.Error("Execution run failed",
				"execution_id", execution.ID,
				"error", err)
		}

		q.mu.Lock()
		delete(q.active, execution.ID)
		q.mu.Unlock()

		if q.onComplete != nil {
			q.onComplete(execution)
		}

		select {
		case q.wake <- struct{}{}:
		default:
		}
	}()
}

// drain promotes pending executions into freed slots, oldest first.
func (q *AdmissionQueue) drain() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	for len(q.active) < q.max && len(q.pending) > 0 {
		next := q.pending[0]
		q.pending = q.pending[1:]

		q.startLocked(next.execution, next.workflow)
		q.logger.Info("Execution promoted from queue",
			"execution_id", next.execution.ID,
			"queued", len(q.pending))
	}
}

// cancelPendingRecord marks a never-started execution cancelled in the
// store.
func (q *AdmissionQueue) cancelPendingRecord(execution *models.Execution, reason string) {
	execution.SetCancelReason(reason)
	execution.Finish(models.ExecutionStatusCancelled)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := q.persistence.ExecutionRepository().Update(ctx, execution); err != nil {
		q.logger.Error("Failed to persist cancelled queued execution",
			"execution_id", execution.ID,
			"error", err)
	}

	q.logger.Info("Queued execution cancelled",
		"execution_id", execution.ID, "reason", reason)
}
