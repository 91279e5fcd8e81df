package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

const defaultLoopCounter = "loop_index"

// LoopFactory creates loop steps.
type LoopFactory struct{}

func NewLoopFactory() *LoopFactory {
	return &LoopFactory{}
}

func (f *LoopFactory) ID() string {
	return string(models.StepTypeLoop)
}

func (f *LoopFactory) Name() string {
	return "Loop"
}

func (f *LoopFactory) Description() string {
	return "Jumps back to the start of the loop body until the iteration count is reached."
}

func (f *LoopFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count": map[string]any{
				"type":        "integer",
				"description": "Total number of iterations.",
				"minimum":     1,
			},
			"body_start": map[string]any{
				"type":        "integer",
				"description": "Step index of the first step of the loop body.",
				"minimum":     0,
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable holding the zero-based iteration counter.",
				"default":     defaultLoopCounter,
			},
		},
		"required":             []string{"count", "body_start"},
		"additionalProperties": false,
	}
}

func (f *LoopFactory) Create(config map[string]any) (protocol.Step, error) {
	count, ok := intFromConfig(config["count"])
	if !ok || count < 1 {
		return nil, fmt.Errorf("missing or invalid 'count' in configuration")
	}

	bodyStart, ok := intFromConfig(config["body_start"])
	if !ok || bodyStart < 0 {
		return nil, fmt.Errorf("missing or invalid 'body_start' in configuration")
	}

	variable, _ := config["variable"].(string)
	if variable == "" {
		variable = defaultLoopCounter
	}

	return &LoopStep{
		count:     count,
		bodyStart: bodyStart,
		variable:  variable,
	}, nil
}

// LoopStep sits after its body. Each pass it increments the counter variable
// and jumps back to the body start until count iterations have run; the
// counter state lives in the execution's variable map, the step itself is
// stateless.
type LoopStep struct {
	count     int
	bodyStart int
	variable  string
}

func (s *LoopStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	iteration := 0
	if raw, exists := executionCtx.Variables[s.variable]; exists {
		if number, ok := intFromConfig(raw); ok {
			iteration = number
		}
	}

	iteration++

	output := &models.StepOutput{
		Success:   true,
		Result:    map[string]any{"iteration": iteration, "count": s.count},
		Variables: map[string]any{s.variable: iteration},
	}

	if iteration < s.count {
		bodyStart := s.bodyStart
		output.Directive = &models.ControlDirective{SkipToIndex: &bodyStart}

		logger.InfoContext(ctx, "Loop continuing", "iteration", iteration, "count", s.count)
	} else {
		logger.InfoContext(ctx, "Loop finished", "iterations", iteration)
	}

	return output, nil
}
