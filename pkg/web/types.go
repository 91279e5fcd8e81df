// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/flowkite/flowkite/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string                 `json:"name"        validate:"required,min=3"`
	Description string                 `json:"description"`
	Owner       string                 `json:"owner"       validate:"required"`
	Status      models.WorkflowStatus  `json:"status"      validate:"omitempty,oneof=draft active disabled"`
	Steps       []*models.WorkflowStep `json:"steps"`
	Variables   map[string]any         `json:"variables"`
}

// ExecuteWorkflowRequest represents the request body for starting an execution.
type ExecuteWorkflowRequest struct {
	Owner     string         `json:"owner"               validate:"required"`
	Variables map[string]any `json:"variables,omitempty"`
}

// ExecuteWorkflowResponse carries the id of the admitted execution.
type ExecuteWorkflowResponse struct {
	ExecutionID string `json:"execution_id"`
}

// CancelExecutionRequest represents the request body for cancelling an execution.
type CancelExecutionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ScheduleWorkflowRequest represents the request body for scheduling a workflow.
type ScheduleWorkflowRequest struct {
	Owner  string                `json:"owner"  validate:"required"`
	Config models.ScheduleConfig `json:"config" validate:"required"`
}
