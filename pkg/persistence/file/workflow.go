package file

import (
	"context"
	"sync"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
)

// WorkflowRepository stores workflows as JSON documents.
type WorkflowRepository struct {
	dir string
	mu  sync.RWMutex
}

func (r *WorkflowRepository) GetAll(_ context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := listIDs(r.dir)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow := &models.Workflow{}
		if err := readDocument(r.dir, id, workflow, persistence.ErrWorkflowNotFound); err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow := &models.Workflow{}
	if err := readDocument(r.dir, id, workflow, persistence.ErrWorkflowNotFound); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = time.Now().UTC()
	}

	workflow.UpdatedAt = time.Now().UTC()

	return writeDocument(r.dir, workflow.ID, workflow)
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return deleteDocument(r.dir, id, persistence.ErrWorkflowNotFound)
}
