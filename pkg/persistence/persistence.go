// Package persistence provides the storage abstraction for workflows,
// executions and schedules.
package persistence

import (
	"context"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ScheduleRepository() ScheduleRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository records execution state. Create inserts the pending
// record at submission; Update persists every status transition including the
// full step history at terminal transitions.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	Update(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error)
}

type ScheduleRepository interface {
	GetAll(ctx context.Context) ([]*models.ScheduledJob, error)
	GetByWorkflowID(ctx context.Context, workflowID string) (*models.ScheduledJob, error)
	Save(ctx context.Context, job *models.ScheduledJob) error
	Delete(ctx context.Context, workflowID string) error
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
