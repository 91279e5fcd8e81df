package variable

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkite/flowkite/pkg/models"
)

func TestSetVariableReturnsConfiguredValues(t *testing.T) {
	step, err := NewSetVariableFactory().Create(map[string]any{
		"variables": map[string]any{"greeting": "hello", "attempts": float64(3)},
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	assert.True(t, output.Success)
	assert.Equal(t, "hello", output.Variables["greeting"])
	assert.Equal(t, float64(3), output.Variables["attempts"])
}

func TestSetVariableRequiresVariables(t *testing.T) {
	_, err := NewSetVariableFactory().Create(map[string]any{})
	assert.Error(t, err)

	_, err = NewSetVariableFactory().Create(map[string]any{"variables": map[string]any{}})
	assert.Error(t, err)
}

func TestTransformations(t *testing.T) {
	tests := []struct {
		name           string
		input          any
		transformation string
		want           any
	}{
		{"uppercase", "hello", "uppercase", "HELLO"},
		{"lowercase", "HeLLo", "lowercase", "hello"},
		{"trim", "  padded  ", "trim", "padded"},
		{"parse number", "42.5", "parse-number", 42.5},
		{"parse structured object", `{"a": 1}`, "parse-structured", map[string]any{"a": float64(1)}},
		{"structured passthrough", map[string]any{"a": float64(1)}, "parse-structured", map[string]any{"a": float64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := NewTransformDataFactory().Create(map[string]any{
				"input":          tt.input,
				"transformation": tt.transformation,
				"variable":       "out",
			})
			require.NoError(t, err)

			output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
			require.NoError(t, err)

			require.True(t, output.Success, output.Error)
			assert.Equal(t, tt.want, output.Variables["out"])
		})
	}
}

func TestTransformParseNumberFailure(t *testing.T) {
	step, err := NewTransformDataFactory().Create(map[string]any{
		"input":          "not a number",
		"transformation": "parse-number",
		"variable":       "out",
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	assert.False(t, output.Success)
	assert.NotEmpty(t, output.Error)
}

func TestTransformUnknownTransformationRejectedAtCreate(t *testing.T) {
	_, err := NewTransformDataFactory().Create(map[string]any{
		"input":          "x",
		"transformation": "reverse",
		"variable":       "out",
	})
	assert.Error(t, err)
}
