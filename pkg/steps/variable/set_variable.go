// Package variable provides the variable manipulation step family:
// set-variable and transform-data.
package variable

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// SetVariableFactory creates set-variable steps.
type SetVariableFactory struct{}

func NewSetVariableFactory() *SetVariableFactory {
	return &SetVariableFactory{}
}

func (f *SetVariableFactory) ID() string {
	return string(models.StepTypeSetVariable)
}

func (f *SetVariableFactory) Name() string {
	return "Set Variable"
}

func (f *SetVariableFactory) Description() string {
	return "Sets one or more variables to the given values."
}

func (f *SetVariableFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"variables": map[string]any{
				"type":        "object",
				"description": "Variable names mapped to their new values. Values support {{name}} placeholders.",
				"minProperties": 1,
				"examples": []map[string]any{
					{"greeting": "hello {{user}}", "attempts": 3},
				},
			},
		},
		"required":             []string{"variables"},
		"additionalProperties": false,
	}
}

func (f *SetVariableFactory) Create(config map[string]any) (protocol.Step, error) {
	variables, ok := config["variables"].(map[string]any)
	if !ok || len(variables) == 0 {
		return nil, fmt.Errorf("missing or invalid 'variables' in configuration")
	}

	return &SetVariableStep{variables: variables}, nil
}

type SetVariableStep struct {
	variables map[string]any
}

func (s *SetVariableStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Setting variables", "count", len(s.variables))

	return &models.StepOutput{
		Success:   true,
		Variables: s.variables,
	}, nil
}
