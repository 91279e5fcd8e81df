// Package models defines the core domain models for browser workflow automation.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not executable
	WorkflowStatusActive   WorkflowStatus = "active"   // Executable and schedulable
	WorkflowStatusDisabled WorkflowStatus = "disabled" // Retained, not executable
)

// Workflow is a stored multi-step automation definition.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	Status      WorkflowStatus  `json:"status"      validate:"required"`
	Steps       []*WorkflowStep `json:"steps"`
	Variables   map[string]any  `json:"variables"`
	Owner       string          `json:"owner"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewWorkflowID generates a unique workflow identifier.
func NewWorkflowID() string {
	return fmt.Sprintf("wf-%s", uuid.New().String()[:8])
}

// Runnable reports whether the workflow may be submitted for execution.
func (w *Workflow) Runnable() bool {
	return w.Status == WorkflowStatusActive
}
