package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
	"github.com/flowkite/flowkite/pkg/queue"
	"github.com/flowkite/flowkite/pkg/scheduler"
)

// ExecuteOptions carries caller-provided trigger metadata for Execute.
type ExecuteOptions struct {
	Variables map[string]any `json:"variables,omitempty"`
	Trigger   string         `json:"trigger,omitempty"`
}

// Engine is the single entry point collaborators use to run, observe and
// schedule workflows.
type Engine struct {
	persistence persistence.Persistence
	queue       *queue.AdmissionQueue
	scheduler   *scheduler.Scheduler
	logger      *slog.Logger
}

func NewEngine(
	store persistence.Persistence,
	admissionQueue *queue.AdmissionQueue,
	workflowScheduler *scheduler.Scheduler,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		persistence: store,
		queue:       admissionQueue,
		scheduler:   workflowScheduler,
		logger:      logger.With("module", "engine"),
	}
}

// Execute admits a new execution for the workflow and returns its id.
func (e *Engine) Execute(ctx context.Context, workflowID, owner string, options ExecuteOptions) (string, error) {
	if workflowID == "" {
		return "", NewValidationError("execute", "EMPTY_WORKFLOW_ID", "workflow id is required", ErrEmptyWorkflow)
	}

	if owner == "" {
		return "", NewValidationError("execute", "EMPTY_OWNER", "owner is required", ErrEmptyOwner)
	}

	return e.queue.Submit(ctx, workflowID, owner, queue.SubmitOptions{
		Variables: options.Variables,
		Trigger:   options.Trigger,
	})
}

// CancelExecution stops a queued or running execution. Returns false when
// the execution is not under the queue's control.
func (e *Engine) CancelExecution(_ context.Context, executionID, reason string) bool {
	if executionID == "" {
		return false
	}

	return e.queue.Cancel(executionID, reason)
}

// GetExecutionStatus returns a snapshot of the execution, preferring the
// live record over the store, or nil when the id is unknown.
func (e *Engine) GetExecutionStatus(ctx context.Context, executionID string) (*models.ExecutionSnapshot, error) {
	if executionID == "" {
		return nil, NewValidationError("get_execution_status", "EMPTY_EXECUTION_ID", "execution id is required", ErrEmptyExecution)
	}

	if execution, tracked := e.queue.Snapshot(executionID); tracked {
		snapshot := execution.Snapshot()

		return &snapshot, nil
	}

	execution, err := e.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch execution %s: %w", executionID, err)
	}

	snapshot := execution.Snapshot()

	return &snapshot, nil
}

// GetActiveExecutions lists snapshots for every execution holding a slot.
func (e *Engine) GetActiveExecutions(_ context.Context) []models.ExecutionSnapshot {
	active := e.queue.ActiveExecutions()

	snapshots := make([]models.ExecutionSnapshot, 0, len(active))
	for _, execution := range active {
		snapshots = append(snapshots, execution.Snapshot())
	}

	return snapshots
}

// ScheduleWorkflow registers a recurring trigger for the workflow.
func (e *Engine) ScheduleWorkflow(ctx context.Context, workflowID string, config models.ScheduleConfig, owner string) (*models.ScheduledJob, error) {
	if workflowID == "" {
		return nil, NewValidationError("schedule_workflow", "EMPTY_WORKFLOW_ID", "workflow id is required", ErrEmptyWorkflow)
	}

	if owner == "" {
		return nil, NewValidationError("schedule_workflow", "EMPTY_OWNER", "owner is required", ErrEmptyOwner)
	}

	return e.scheduler.Schedule(ctx, workflowID, config, owner)
}

// UnscheduleWorkflow removes the workflow's recurring trigger.
func (e *Engine) UnscheduleWorkflow(ctx context.Context, workflowID string) error {
	if workflowID == "" {
		return NewValidationError("unschedule_workflow", "EMPTY_WORKFLOW_ID", "workflow id is required", ErrEmptyWorkflow)
	}

	return e.scheduler.Unschedule(ctx, workflowID)
}

// GetQueueStatus reports the admission queue's occupancy.
func (e *Engine) GetQueueStatus() queue.Status {
	return e.queue.Status()
}

// GetSchedulerStatus reports the scheduler's state.
func (e *Engine) GetSchedulerStatus() scheduler.Status {
	return e.scheduler.Status()
}
