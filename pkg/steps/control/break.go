package control

import (
	"context"
	"log/slog"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// BreakFactory creates break steps.
type BreakFactory struct{}

func NewBreakFactory() *BreakFactory {
	return &BreakFactory{}
}

func (f *BreakFactory) ID() string {
	return string(models.StepTypeBreak)
}

func (f *BreakFactory) Name() string {
	return "Break"
}

func (f *BreakFactory) Description() string {
	return "Halts the run early; remaining steps are skipped and the execution completes."
}

func (f *BreakFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
}

func (f *BreakFactory) Create(_ map[string]any) (protocol.Step, error) {
	return &BreakStep{}, nil
}

type BreakStep struct{}

func (s *BreakStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Halting execution", "step_index", executionCtx.StepIndex)

	return &models.StepOutput{
		Success:   true,
		Directive: &models.ControlDirective{Halt: true},
	}, nil
}
