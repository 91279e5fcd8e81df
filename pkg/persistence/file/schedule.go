package file

import (
	"context"
	"sync"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
)

// ScheduleRepository stores scheduled jobs as JSON documents keyed by
// workflow id.
type ScheduleRepository struct {
	dir string
	mu  sync.RWMutex
}

func (r *ScheduleRepository) GetAll(_ context.Context) ([]*models.ScheduledJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := listIDs(r.dir)
	if err != nil {
		return nil, err
	}

	jobs := make([]*models.ScheduledJob, 0, len(ids))

	for _, id := range ids {
		job := &models.ScheduledJob{}
		if err := readDocument(r.dir, id, job, persistence.ErrScheduleNotFound); err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (r *ScheduleRepository) GetByWorkflowID(_ context.Context, workflowID string) (*models.ScheduledJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job := &models.ScheduledJob{}
	if err := readDocument(r.dir, workflowID, job, persistence.ErrScheduleNotFound); err != nil {
		return nil, err
	}

	return job, nil
}

func (r *ScheduleRepository) Save(_ context.Context, job *models.ScheduledJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	job.UpdatedAt = time.Now().UTC()

	return writeDocument(r.dir, job.WorkflowID, job)
}

func (r *ScheduleRepository) Delete(_ context.Context, workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return deleteDocument(r.dir, workflowID, persistence.ErrScheduleNotFound)
}
