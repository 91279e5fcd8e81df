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

type WorkflowRepository struct {
	db *sql.DB
}

func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, status, steps, variables, owner, created_at, updated_at
		FROM workflows
		ORDER BY created_at
	`)
	if err != nil {
		return nil, &persistence.StoreError{Op: "GetAll", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var workflows []*models.Workflow

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, steps, variables, owner, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`, id)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &persistence.StoreError{Op: "GetByID", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return workflow, err
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	steps, err := json.Marshal(workflow.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	variables, err := json.Marshal(workflow.Variables)
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, status, steps, variables, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			steps = EXCLUDED.steps,
			variables = EXCLUDED.variables,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`, workflow.ID, workflow.Name, workflow.Description, workflow.Status, steps, variables,
		workflow.Owner, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return &persistence.StoreError{Op: "Save", ID: workflow.ID, Err: err}
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return &persistence.StoreError{Op: "Delete", ID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return &persistence.StoreError{Op: "Delete", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow  models.Workflow
		steps     []byte
		variables []byte
	)

	err := row.Scan(&workflow.ID, &workflow.Name, &workflow.Description, &workflow.Status,
		&steps, &variables, &workflow.Owner, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(steps, &workflow.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to decode steps for %s: %w", workflow.ID, err)
	}

	err = json.Unmarshal(variables, &workflow.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to decode variables for %s: %w", workflow.ID, err)
	}

	return &workflow, nil
}
