package models

// ExecutionContext is the per-dispatch view handed to step handlers. Variables
// is the live variable map of the owning execution; handlers must not mutate
// it directly and instead return updates through StepOutput.Variables.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Owner       string         `json:"owner"`
	StepIndex   int            `json:"step_index"`
	Variables   map[string]any `json:"variables,omitempty"`
}
