// Package runner drives one execution through its workflow's steps in order,
// applying placeholder resolution, control directives and the
// continue-on-error policy.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowkite/flowkite/pkg/browser"
	"github.com/flowkite/flowkite/pkg/eventbus"
	"github.com/flowkite/flowkite/pkg/events"
	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/otelhelper"
	"github.com/flowkite/flowkite/pkg/persistence"
	"github.com/flowkite/flowkite/pkg/registry"
	"github.com/flowkite/flowkite/pkg/template"
)

const sessionReleaseReason = "execution_finished"

type Runner struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	pool        *browser.Pool
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewRunner(
	persistence persistence.Persistence,
	stepRegistry *registry.Registry,
	publisher eventbus.EventPublisher,
	pool *browser.Pool,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Runner {
	if tracer == nil {
		tracer = otel.Tracer("flowkite")
	}

	return &Runner{
		persistence: persistence,
		registry:    stepRegistry,
		publisher:   publisher,
		pool:        pool,
		tracer:      tracer,
		logger:      logger.With("module", "runner"),
	}
}

// Run executes every step of the workflow in order and persists the terminal
// execution record. The execution must be in the pending state; the caller
// owns it exclusively for the duration of the call. Cancellation is
// cooperative: a cancelled ctx is honored between steps, never mid-step.
func (r *Runner) Run(ctx context.Context, execution *models.Execution, workflow *models.Workflow) error {
	logger := r.logger.With(
		"execution_id", execution.ID,
		"workflow_id", execution.WorkflowID,
	)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "execution.run",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.OwnerKey, execution.Owner),
		attribute.String(otelhelper.TriggerKey, execution.Trigger),
	)
	defer span.End()

	execution.Begin()

	if err := r.persistence.ExecutionRepository().Update(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist running execution %s: %w", execution.ID, err)
	}

	logger.InfoContext(ctx, "Starting execution", "total_steps", execution.TotalSteps)

	r.publish(ctx, execution, events.ExecutionStarted{
		BaseEvent:  r.baseEvent(events.ExecutionStartedEvent, execution),
		Owner:      execution.Owner,
		Trigger:    execution.Trigger,
		TotalSteps: execution.TotalSteps,
	})

	halted := false

	index := 0
	for index < len(workflow.Steps) {
		if err := ctx.Err(); err != nil {
			r.finalizeCancelled(execution, logger)

			return nil
		}

		step := workflow.Steps[index]
		execution.AdvanceTo(index)

		result := r.runStep(ctx, execution, step, index, logger)
		execution.RecordStep(result)

		if !result.Success {
			if !step.ContinueOnError {
				r.finalize(ctx, execution, models.ExecutionStatusFailed, logger)

				return nil
			}

			index++

			continue
		}

		if result.Directive != nil {
			if result.Directive.Halt {
				halted = true

				break
			}

			if result.Directive.SkipToIndex != nil {
				target := *result.Directive.SkipToIndex
				if target < 0 || target >= len(workflow.Steps) {
					execution.RecordError(
						fmt.Sprintf("step %d requested skip to invalid index %d", index, target))
					r.finalize(ctx, execution, models.ExecutionStatusFailed, logger)

					return nil
				}

				index = target

				continue
			}
		}

		index++
	}

	if halted {
		logger.InfoContext(ctx, "Execution halted early by step directive")
	}

	r.finalize(ctx, execution, models.ExecutionStatusCompleted, logger)

	return nil
}

// runStep resolves the step's placeholders, dispatches it and converts every
// failure path into a recorded failure result.
func (r *Runner) runStep(
	ctx context.Context,
	execution *models.Execution,
	step *models.WorkflowStep,
	index int,
	logger *slog.Logger,
) models.StepResult {
	stepCtx, span := otelhelper.StartSpan(ctx, r.tracer, "step.run",
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepTypeKey, string(step.Type)),
		attribute.Int(otelhelper.StepIndexKey, index),
	)
	defer span.End()

	stepLogger := logger.With("step_id", step.ID, "step_type", step.Type, "step_index", index)
	stepLogger.InfoContext(stepCtx, "Executing step")

	r.publish(stepCtx, execution, events.StepStarted{
		BaseEvent: r.baseEvent(events.StepStartedEvent, execution),
		StepID:    step.ID,
		StepIndex: index,
		StepType:  step.Type,
	})

	started := time.Now().UTC()

	output := r.dispatch(stepCtx, execution, step, index, stepLogger)
	duration := time.Since(started)

	result := models.StepResult{
		Index:       index,
		StepID:      step.ID,
		Type:        step.Type,
		Success:     output.Success,
		Result:      output.Result,
		Error:       output.Error,
		Directive:   output.Directive,
		Duration:    duration,
		CompletedAt: time.Now().UTC(),
	}

	if !output.Success {
		otelhelper.SetError(span, fmt.Errorf("%s", output.Error))
		stepLogger.ErrorContext(stepCtx, "Step failed", "error", output.Error)

		r.publish(stepCtx, execution, events.StepFailed{
			BaseEvent: r.baseEvent(events.StepFailedEvent, execution),
			StepID:    step.ID,
			StepIndex: index,
			StepType:  step.Type,
			Error:     output.Error,
			Duration:  duration,
		})

		return result
	}

	// Later steps see variable updates immediately.
	execution.MergeVariables(output.Variables)

	stepLogger.InfoContext(stepCtx, "Step completed", "duration", duration)

	r.publish(stepCtx, execution, events.StepCompleted{
		BaseEvent: r.baseEvent(events.StepCompletedEvent, execution),
		StepID:    step.ID,
		StepIndex: index,
		StepType:  step.Type,
		Result:    output.Result,
		Duration:  duration,
	})

	return result
}

func (r *Runner) dispatch(
	ctx context.Context,
	execution *models.Execution,
	step *models.WorkflowStep,
	index int,
	logger *slog.Logger,
) *models.StepOutput {
	resolvedConfig := template.ResolveConfig(step.Configuration, execution.Variables)

	stepInstance, err := r.registry.CreateStep(string(step.Type), resolvedConfig)
	if err != nil {
		return models.Failure(fmt.Sprintf("step dispatch failed: %v", err))
	}

	executionCtx := models.ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Owner:       execution.Owner,
		StepIndex:   index,
		Variables:   execution.Variables,
	}

	output, err := stepInstance.Execute(ctx, executionCtx, logger)
	if err != nil {
		return models.Failure(err.Error())
	}

	if output == nil {
		return models.Failure("step returned no output")
	}

	return output
}

// finalize records the terminal state, publishes the matching lifecycle
// event and releases the execution's browser session. Persistence and
// publishing use a fresh context so a cancelled run still lands in the
// store.
func (r *Runner) finalize(_ context.Context, execution *models.Execution, status models.ExecutionStatus, logger *slog.Logger) {
	execution.Finish(status)

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.persistence.ExecutionRepository().Update(persistCtx, execution); err != nil {
		logger.ErrorContext(persistCtx, "Failed to persist terminal execution", "error", err)
	}

	switch status {
	case models.ExecutionStatusCompleted:
		snapshot := execution.Snapshot()

		r.publish(persistCtx, execution, events.ExecutionCompleted{
			BaseEvent:      r.baseEvent(events.ExecutionCompletedEvent, execution),
			Duration:       execution.Duration(),
			StepsCompleted: snapshot.StepsCompleted,
			StepsFailed:    snapshot.StepsFailed,
		})
	case models.ExecutionStatusFailed:
		lastError := execution.LastError()

		r.publish(persistCtx, execution, events.ExecutionFailed{
			BaseEvent: r.baseEvent(events.ExecutionFailedEvent, execution),
			Error:     lastError,
			Duration:  execution.Duration(),
		})
	default:
	}

	r.releaseSession(execution)

	logger.InfoContext(persistCtx, "Execution finished",
		"status", status,
		"duration", execution.Duration())
}

func (r *Runner) finalizeCancelled(execution *models.Execution, logger *slog.Logger) {
	reason := execution.EnsureCancelReason("context cancelled")
	execution.Finish(models.ExecutionStatusCancelled)

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.persistence.ExecutionRepository().Update(persistCtx, execution); err != nil {
		logger.ErrorContext(persistCtx, "Failed to persist cancelled execution", "error", err)
	}

	r.publish(persistCtx, execution, events.ExecutionCancelled{
		BaseEvent: r.baseEvent(events.ExecutionCancelledEvent, execution),
		Reason:    reason,
	})

	r.releaseSession(execution)

	logger.InfoContext(persistCtx, "Execution cancelled", "reason", reason)
}

func (r *Runner) releaseSession(execution *models.Execution) {
	if r.pool != nil {
		r.pool.Close(execution.ID, sessionReleaseReason)
	}
}

func (r *Runner) baseEvent(eventType events.EventType, execution *models.Execution) events.BaseEvent {
	return events.BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
	}
}

// publish is fire-and-forget: a broken bus never fails a run.
func (r *Runner) publish(ctx context.Context, execution *models.Execution, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, execution.WorkflowID, event); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"execution_id", execution.ID,
			"error", err)
	}
}
