// Package control provides the control-flow step family: condition, loop,
// break and continue. These steps never touch the browser; they steer the
// runner's iteration through control directives.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// ConditionFactory creates condition steps.
type ConditionFactory struct{}

func NewConditionFactory() *ConditionFactory {
	return &ConditionFactory{}
}

func (f *ConditionFactory) ID() string {
	return string(models.StepTypeCondition)
}

func (f *ConditionFactory) Name() string {
	return "Condition"
}

func (f *ConditionFactory) Description() string {
	return "Compares two operands, or tests a single value for truthiness, and follows the matching branch."
}

func (f *ConditionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operator": map[string]any{
				"type":        "string",
				"description": "Comparison operator applied to 'left' and 'right'.",
				"enum":        []string{"==", "!=", ">", "<"},
			},
			"left": map[string]any{
				"description": "Left operand. Supports {{name}} placeholders.",
			},
			"right": map[string]any{
				"description": "Right operand. Supports {{name}} placeholders.",
			},
			"value": map[string]any{
				"description": "Single value tested for truthiness when no operator is given.",
			},
			"on_true":  branchProperty("Branch taken when the condition holds."),
			"on_false": branchProperty("Branch taken when the condition does not hold."),
		},
		"additionalProperties": false,
	}
}

func branchProperty(description string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": description,
		"properties": map[string]any{
			"skip_to_index": map[string]any{
				"type":        "integer",
				"description": "Step index the runner continues from.",
				"minimum":     0,
			},
		},
		"additionalProperties": false,
	}
}

func (f *ConditionFactory) Create(config map[string]any) (protocol.Step, error) {
	operator, _ := config["operator"].(string)

	if operator != "" {
		if _, hasLeft := config["left"]; !hasLeft {
			return nil, fmt.Errorf("missing 'left' operand for operator %q", operator)
		}

		if _, hasRight := config["right"]; !hasRight {
			return nil, fmt.Errorf("missing 'right' operand for operator %q", operator)
		}
	} else if _, hasValue := config["value"]; !hasValue {
		return nil, fmt.Errorf("configuration needs an 'operator' with operands, or a 'value'")
	}

	return &ConditionStep{
		operator: operator,
		left:     config["left"],
		right:    config["right"],
		value:    config["value"],
		onTrue:   parseBranch(config["on_true"]),
		onFalse:  parseBranch(config["on_false"]),
	}, nil
}

type branch struct {
	skipToIndex *int
}

func parseBranch(raw any) branch {
	branchMap, ok := raw.(map[string]any)
	if !ok {
		return branch{}
	}

	if index, ok := intFromConfig(branchMap["skip_to_index"]); ok {
		return branch{skipToIndex: &index}
	}

	return branch{}
}

// intFromConfig reads an index or count that arrives as float64 from decoded
// JSON but as a native int from configs built in code.
func intFromConfig(raw any) (int, bool) {
	switch value := raw.(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	default:
		return 0, false
	}
}

// ConditionStep evaluates the restricted comparison grammar and emits a
// skip-to-index directive when the chosen branch requests one.
type ConditionStep struct {
	operator string
	left     any
	right    any
	value    any
	onTrue   branch
	onFalse  branch
}

func (s *ConditionStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	var (
		holds bool
		err   error
	)

	if s.operator != "" {
		holds, err = models.Compare(s.left, s.right, s.operator)
		if err != nil {
			return models.Failure(fmt.Sprintf("condition evaluation failed: %v", err)), nil
		}
	} else {
		holds = models.Truthy(s.value)
	}

	logger.InfoContext(ctx, "Condition evaluated", "result", holds)

	chosen := s.onFalse
	if holds {
		chosen = s.onTrue
	}

	output := &models.StepOutput{
		Success: true,
		Result:  map[string]any{"condition": holds},
	}

	if chosen.skipToIndex != nil {
		output.Directive = &models.ControlDirective{SkipToIndex: chosen.skipToIndex}
	}

	return output, nil
}
