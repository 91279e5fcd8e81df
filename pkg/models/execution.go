package models

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Execution is one run of a workflow definition, with its own variable state
// and step history. The owning runner advances it through the mutator methods
// while status queries read it concurrently through Snapshot; the embedded
// lock keeps those two sides apart. Must not be copied by value.
type Execution struct {
	mu sync.RWMutex

	ID               string          `json:"id"`
	WorkflowID       string          `json:"workflow_id"`
	Owner            string          `json:"owner"`
	Trigger          string          `json:"trigger"` // "manual", "scheduled", "queue"
	Status           ExecutionStatus `json:"status"`
	Variables        map[string]any  `json:"variables,omitempty"`
	StepResults      []StepResult    `json:"step_results,omitempty"`
	Errors           []string        `json:"errors,omitempty"`
	CurrentStepIndex int             `json:"current_step_index"`
	TotalSteps       int             `json:"total_steps"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewExecution creates a pending execution for the given workflow, seeding its
// variable map from the workflow defaults overlaid with caller overrides.
func NewExecution(workflow *Workflow, owner, trigger string, overrides map[string]any) *Execution {
	variables := make(map[string]any, len(workflow.Variables)+len(overrides))
	for k, v := range workflow.Variables {
		variables[k] = v
	}

	for k, v := range overrides {
		variables[k] = v
	}

	return &Execution{
		ID:         NewExecutionID(),
		WorkflowID: workflow.ID,
		Owner:      owner,
		Trigger:    trigger,
		Status:     ExecutionStatusPending,
		Variables:  variables,
		TotalSteps: len(workflow.Steps),
		CreatedAt:  time.Now().UTC(),
	}
}

// NewExecutionID generates a unique execution identifier.
func NewExecutionID() string {
	return fmt.Sprintf("exec-%s", uuid.New().String()[:8])
}

// Begin marks the execution running and stamps its start time.
func (e *Execution) Begin() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Status = ExecutionStatusRunning
	e.StartedAt = time.Now().UTC()
}

// AdvanceTo records the index of the step about to run.
func (e *Execution) AdvanceTo(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.CurrentStepIndex = index
}

// RecordStep appends a step result to the history, collecting its error when
// the step failed.
func (e *Execution) RecordStep(result StepResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.StepResults = append(e.StepResults, result)

	if !result.Success && result.Error != "" {
		e.Errors = append(e.Errors, result.Error)
	}
}

// RecordError appends an error line outside of any step result.
func (e *Execution) RecordError(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Errors = append(e.Errors, message)
}

// MergeVariables overlays step output variables onto the execution state.
func (e *Execution) MergeVariables(values map[string]any) {
	if len(values) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for name, value := range values {
		e.Variables[name] = value
	}
}

// Finish stamps a terminal status and the finish time.
func (e *Execution) Finish(status ExecutionStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	e.Status = status
	e.FinishedAt = &now
}

// SetCancelReason records why the execution was cancelled.
func (e *Execution) SetCancelReason(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.CancelReason = reason
}

// EnsureCancelReason fills in a fallback reason when none was recorded and
// returns the effective reason.
func (e *Execution) EnsureCancelReason(fallback string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.CancelReason == "" {
		e.CancelReason = fallback
	}

	return e.CancelReason
}

// LastError returns the most recently recorded error, or "".
func (e *Execution) LastError() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.Errors) == 0 {
		return ""
	}

	return e.Errors[len(e.Errors)-1]
}

// Terminal reports whether the execution reached a final state.
func (e *Execution) Terminal() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch e.Status {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// Duration returns elapsed wall time, using now for still-running executions.
func (e *Execution) Duration() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.duration()
}

// duration computes elapsed time. Caller holds e.mu.
func (e *Execution) duration() time.Duration {
	if e.StartedAt.IsZero() {
		return 0
	}

	if e.FinishedAt != nil {
		return e.FinishedAt.Sub(e.StartedAt)
	}

	return time.Since(e.StartedAt)
}

// MarshalJSON serializes the execution under the read lock so a live run can
// be persisted while its runner keeps recording steps.
func (e *Execution) MarshalJSON() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	type plain Execution

	return json.Marshal((*plain)(e))
}

// Clone returns a consistent deep copy of the execution state, safe to read
// and serialize without further locking.
func (e *Execution) Clone() *Execution {
	e.mu.RLock()
	defer e.mu.RUnlock()

	clone := &Execution{
		ID:               e.ID,
		WorkflowID:       e.WorkflowID,
		Owner:            e.Owner,
		Trigger:          e.Trigger,
		Status:           e.Status,
		CurrentStepIndex: e.CurrentStepIndex,
		TotalSteps:       e.TotalSteps,
		CancelReason:     e.CancelReason,
		StartedAt:        e.StartedAt,
		CreatedAt:        e.CreatedAt,
	}

	if e.FinishedAt != nil {
		finished := *e.FinishedAt
		clone.FinishedAt = &finished
	}

	if e.Variables != nil {
		clone.Variables = make(map[string]any, len(e.Variables))
		for k, v := range e.Variables {
			clone.Variables[k] = v
		}
	}

	clone.StepResults = append([]StepResult(nil), e.StepResults...)
	clone.Errors = append([]string(nil), e.Errors...)

	return clone
}

// ExecutionSnapshot is the read-model returned by status queries.
type ExecutionSnapshot struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	Status         ExecutionStatus `json:"status"`
	CurrentStep    int             `json:"current_step"`
	TotalSteps     int             `json:"total_steps"`
	Duration       time.Duration   `json:"duration"`
	StepsCompleted int             `json:"steps_completed"`
	StepsFailed    int             `json:"steps_failed"`
}

// Snapshot produces a point-in-time view of the execution.
func (e *Execution) Snapshot() ExecutionSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	completed := 0
	failed := 0

	for _, result := range e.StepResults {
		if result.Success {
			completed++
		} else {
			failed++
		}
	}

	return ExecutionSnapshot{
		ID:             e.ID,
		WorkflowID:     e.WorkflowID,
		Status:         e.Status,
		CurrentStep:    e.CurrentStepIndex,
		TotalSteps:     e.TotalSteps,
		Duration:       e.duration(),
		StepsCompleted: completed,
		StepsFailed:    failed,
	}
}
