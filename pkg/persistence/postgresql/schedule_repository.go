package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
)

type ScheduleRepository struct {
	db *sql.DB
}

const scheduleColumns = `workflow_id, owner, config, enabled, last_run, next_run, created_at, updated_at`

func (r *ScheduleRepository) GetAll(ctx context.Context) ([]*models.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at`)
	if err != nil {
		return nil, &persistence.StoreError{Op: "GetAll", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var jobs []*models.ScheduledJob

	for rows.Next() {
		job, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (r *ScheduleRepository) GetByWorkflowID(ctx context.Context, workflowID string) (*models.ScheduledJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE workflow_id = $1`, workflowID)

	job, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &persistence.StoreError{Op: "GetByWorkflowID", ID: workflowID, Err: persistence.ErrScheduleNotFound}
	}

	return job, err
}

func (r *ScheduleRepository) Save(ctx context.Context, job *models.ScheduledJob) error {
	config, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("failed to encode schedule config: %w", err)
	}

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}

	job.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (workflow_id)
		DO UPDATE SET
			owner = EXCLUDED.owner,
			config = EXCLUDED.config,
			enabled = EXCLUDED.enabled,
			last_run = EXCLUDED.last_run,
			next_run = EXCLUDED.next_run,
			updated_at = EXCLUDED.updated_at
	`, job.WorkflowID, job.Owner, config, job.Enabled, job.LastRun, job.NextRun, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return &persistence.StoreError{Op: "Save", ID: job.WorkflowID, Err: err}
	}

	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, workflowID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE workflow_id = $1", workflowID)
	if err != nil {
		return &persistence.StoreError{Op: "Delete", ID: workflowID, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return &persistence.StoreError{Op: "Delete", ID: workflowID, Err: persistence.ErrScheduleNotFound}
	}

	return nil
}

func scanSchedule(row rowScanner) (*models.ScheduledJob, error) {
	var (
		job    models.ScheduledJob
		config []byte
	)

	err := row.Scan(&job.WorkflowID, &job.Owner, &config, &job.Enabled, &job.LastRun,
		&job.NextRun, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(config, &job.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schedule config for %s: %w", job.WorkflowID, err)
	}

	return &job, nil
}
