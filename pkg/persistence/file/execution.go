package file

import (
	"context"
	"sort"
	"sync"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
)

// ExecutionRepository stores executions as JSON documents.
type ExecutionRepository struct {
	dir string
	mu  sync.RWMutex
}

func (r *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.dir, execution.ID, execution)
}

func (r *ExecutionRepository) Update(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.dir, execution.ID, execution)
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution := &models.Execution{}
	if err := readDocument(r.dir, id, execution, persistence.ErrExecutionNotFound); err != nil {
		return nil, err
	}

	return execution, nil
}

func (r *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := listIDs(r.dir)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution := &models.Execution{}
		if err := readDocument(r.dir, id, execution, persistence.ErrExecutionNotFound); err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}
