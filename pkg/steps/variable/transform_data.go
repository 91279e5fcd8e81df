package variable

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// TransformDataFactory creates transform-data steps.
type TransformDataFactory struct{}

func NewTransformDataFactory() *TransformDataFactory {
	return &TransformDataFactory{}
}

func (f *TransformDataFactory) ID() string {
	return string(models.StepTypeTransformData)
}

func (f *TransformDataFactory) Name() string {
	return "Transform Data"
}

func (f *TransformDataFactory) Description() string {
	return "Applies a named transformation to a value and stores the result in a variable."
}

func (f *TransformDataFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"description": "Value to transform. Supports {{name}} placeholders.",
			},
			"transformation": map[string]any{
				"type":        "string",
				"description": "Named transformation to apply.",
				"enum":        []string{"uppercase", "lowercase", "trim", "parse-number", "parse-structured"},
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name the transformed value is stored under.",
			},
		},
		"required":             []string{"input", "transformation", "variable"},
		"additionalProperties": false,
	}
}

func (f *TransformDataFactory) Create(config map[string]any) (protocol.Step, error) {
	input, exists := config["input"]
	if !exists {
		return nil, fmt.Errorf("missing 'input' in configuration")
	}

	transformation, ok := config["transformation"].(string)
	if !ok || transformation == "" {
		return nil, fmt.Errorf("missing or invalid 'transformation' in configuration")
	}

	switch transformation {
	case "uppercase", "lowercase", "trim", "parse-number", "parse-structured":
	default:
		return nil, fmt.Errorf("unknown transformation %q", transformation)
	}

	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return nil, fmt.Errorf("missing or invalid 'variable' in configuration")
	}

	return &TransformDataStep{
		input:          input,
		transformation: transformation,
		variable:       variable,
	}, nil
}

type TransformDataStep struct {
	input          any
	transformation string
	variable       string
}

func (s *TransformDataStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Transforming data", "transformation", s.transformation)

	transformed, err := applyTransformation(s.input, s.transformation)
	if err != nil {
		return models.Failure(err.Error()), nil
	}

	return &models.StepOutput{
		Success:   true,
		Result:    transformed,
		Variables: map[string]any{s.variable: transformed},
	}, nil
}

func applyTransformation(input any, transformation string) (any, error) {
	text := fmt.Sprintf("%v", input)

	switch transformation {
	case "uppercase":
		return strings.ToUpper(text), nil
	case "lowercase":
		return strings.ToLower(text), nil
	case "trim":
		return strings.TrimSpace(text), nil
	case "parse-number":
		number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as a number: %w", text, err)
		}

		return number, nil
	case "parse-structured":
		// Already-structured values pass through untouched.
		switch input.(type) {
		case map[string]any, []any:
			return input, nil
		}

		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return nil, fmt.Errorf("cannot parse value as JSON: %w", err)
		}

		return parsed, nil
	default:
		return nil, fmt.Errorf("unknown transformation %q", transformation)
	}
}
