package models

import "time"

// ControlDirective lets a step redirect the runner's iteration. SkipToIndex
// continues from the given step index; Halt ends the run early as completed.
type ControlDirective struct {
	SkipToIndex *int `json:"skip_to_index,omitempty"`
	Halt        bool `json:"halt,omitempty"`
}

// StepOutput is the uniform result contract every step handler returns.
// Handlers convert lower-level failures into Success=false with a message
// rather than letting them escape.
type StepOutput struct {
	Success   bool              `json:"success"`
	Result    any               `json:"result,omitempty"`
	Variables map[string]any    `json:"variables,omitempty"`
	Error     string            `json:"error,omitempty"`
	Directive *ControlDirective `json:"directive,omitempty"`
}

// Failure builds a failed StepOutput with the given message.
func Failure(message string) *StepOutput {
	return &StepOutput{Success: false, Error: message}
}

// StepResult is the recorded outcome of dispatching one step.
type StepResult struct {
	Index       int               `json:"index"`
	StepID      string            `json:"step_id"`
	Type        StepType          `json:"type"`
	Success     bool              `json:"success"`
	Result      any               `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	Directive   *ControlDirective `json:"directive,omitempty"`
	Duration    time.Duration     `json:"duration"`
	CompletedAt time.Time         `json:"completed_at"`
}
