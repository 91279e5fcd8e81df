package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
)

type ExecutionRepository struct {
	db *sql.DB
}

const executionColumns = `id, workflow_id, owner, trigger_kind, status, variables, step_results, errors,
	current_step_index, total_steps, cancel_reason, started_at, finished_at, created_at`

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	return r.upsert(ctx, "Create", execution)
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	return r.upsert(ctx, "Update", execution)
}

func (r *ExecutionRepository) upsert(ctx context.Context, op string, live *models.Execution) error {
	// A running execution keeps mutating; write a consistent copy.
	execution := live.Clone()

	variables, err := json.Marshal(execution.Variables)
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}

	stepResults, err := json.Marshal(execution.StepResults)
	if err != nil {
		return fmt.Errorf("failed to encode step results: %w", err)
	}

	execErrors, err := json.Marshal(execution.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}

	var startedAt any
	if !execution.StartedAt.IsZero() {
		startedAt = execution.StartedAt
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (`+executionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			variables = EXCLUDED.variables,
			step_results = EXCLUDED.step_results,
			errors = EXCLUDED.errors,
			current_step_index = EXCLUDED.current_step_index,
			cancel_reason = EXCLUDED.cancel_reason,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`, execution.ID, execution.WorkflowID, execution.Owner, execution.Trigger, execution.Status,
		variables, stepResults, execErrors, execution.CurrentStepIndex, execution.TotalSteps,
		execution.CancelReason, startedAt, execution.FinishedAt, execution.CreatedAt)
	if err != nil {
		return &persistence.StoreError{Op: op, ID: execution.ID, Err: err}
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+executionColumns+`
		FROM executions
		WHERE id = $1
	`, id)

	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &persistence.StoreError{Op: "GetByID", ID: id, Err: persistence.ErrExecutionNotFound}
	}

	return execution, err
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+executionColumns+`
		FROM executions
		WHERE workflow_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, workflowID, limit)
	if err != nil {
		return nil, &persistence.StoreError{Op: "ListByWorkflow", ID: workflowID, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var executions []*models.Execution

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		variables   []byte
		stepResults []byte
		execErrors  []byte
		startedAt   sql.NullTime
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &execution.Owner, &execution.Trigger,
		&execution.Status, &variables, &stepResults, &execErrors, &execution.CurrentStepIndex,
		&execution.TotalSteps, &execution.CancelReason, &startedAt, &execution.FinishedAt,
		&execution.CreatedAt)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		execution.StartedAt = startedAt.Time
	}

	err = json.Unmarshal(variables, &execution.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to decode variables for %s: %w", execution.ID, err)
	}

	err = json.Unmarshal(stepResults, &execution.StepResults)
	if err != nil {
		return nil, fmt.Errorf("failed to decode step results for %s: %w", execution.ID, err)
	}

	err = json.Unmarshal(execErrors, &execution.Errors)
	if err != nil {
		return nil, fmt.Errorf("failed to decode errors for %s: %w", execution.ID, err)
	}

	return &execution, nil
}
