package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// ContinueFactory creates continue steps.
type ContinueFactory struct{}

func NewContinueFactory() *ContinueFactory {
	return &ContinueFactory{}
}

func (f *ContinueFactory) ID() string {
	return string(models.StepTypeContinue)
}

func (f *ContinueFactory) Name() string {
	return "Continue"
}

func (f *ContinueFactory) Description() string {
	return "Skips the rest of the loop body by jumping to the configured step index."
}

func (f *ContinueFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skip_to_index": map[string]any{
				"type":        "integer",
				"description": "Step index the runner continues from, usually the loop step.",
				"minimum":     0,
			},
		},
		"required":             []string{"skip_to_index"},
		"additionalProperties": false,
	}
}

func (f *ContinueFactory) Create(config map[string]any) (protocol.Step, error) {
	index, ok := intFromConfig(config["skip_to_index"])
	if !ok || index < 0 {
		return nil, fmt.Errorf("missing or invalid 'skip_to_index' in configuration")
	}

	return &ContinueStep{skipToIndex: index}, nil
}

type ContinueStep struct {
	skipToIndex int
}

func (s *ContinueStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Continuing", "skip_to_index", s.skipToIndex)

	index := s.skipToIndex

	return &models.StepOutput{
		Success:   true,
		Directive: &models.ControlDirective{SkipToIndex: &index},
	}, nil
}
