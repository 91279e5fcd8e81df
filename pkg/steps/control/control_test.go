package control

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkite/flowkite/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestConditionGreaterThanTakesTrueBranch(t *testing.T) {
	step, err := NewConditionFactory().Create(map[string]any{
		"operator": ">",
		"left":     float64(15),
		"right":    float64(10),
		"on_true":  map[string]any{"skip_to_index": float64(5)},
		"on_false": map[string]any{"skip_to_index": float64(9)},
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	assert.True(t, output.Success)
	require.NotNil(t, output.Directive)
	require.NotNil(t, output.Directive.SkipToIndex)
	assert.Equal(t, 5, *output.Directive.SkipToIndex)
}

func TestConditionFalseBranchWithoutSkipHasNoDirective(t *testing.T) {
	step, err := NewConditionFactory().Create(map[string]any{
		"operator": "==",
		"left":     "a",
		"right":    "b",
		"on_true":  map[string]any{"skip_to_index": float64(3)},
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	assert.True(t, output.Success)
	assert.Nil(t, output.Directive)
	assert.Equal(t, map[string]any{"condition": false}, output.Result)
}

func TestConditionTruthinessFallback(t *testing.T) {
	step, err := NewConditionFactory().Create(map[string]any{
		"value":   "yes",
		"on_true": map[string]any{"skip_to_index": float64(2)},
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	require.NotNil(t, output.Directive)
	assert.Equal(t, 2, *output.Directive.SkipToIndex)
}

func TestConditionUnsupportedOperatorFails(t *testing.T) {
	step, err := NewConditionFactory().Create(map[string]any{
		"operator": ">",
		"left":     "abc",
		"right":    "def",
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	assert.False(t, output.Success)
	assert.NotEmpty(t, output.Error)
}

func TestConditionRequiresOperandsOrValue(t *testing.T) {
	_, err := NewConditionFactory().Create(map[string]any{})
	assert.Error(t, err)

	_, err = NewConditionFactory().Create(map[string]any{"operator": ">", "left": float64(1)})
	assert.Error(t, err)
}

func TestLoopJumpsBackUntilCountReached(t *testing.T) {
	step, err := NewLoopFactory().Create(map[string]any{
		"count":      float64(3),
		"body_start": float64(1),
	})
	require.NoError(t, err)

	// First pass: no counter in the variable map yet.
	output, err := step.Execute(context.Background(), models.ExecutionContext{Variables: map[string]any{}}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, output.Directive)
	assert.Equal(t, 1, *output.Directive.SkipToIndex)
	assert.Equal(t, 1, output.Variables["loop_index"])

	// Second pass.
	output, err = step.Execute(context.Background(), models.ExecutionContext{
		Variables: map[string]any{"loop_index": 1},
	}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, output.Directive)
	assert.Equal(t, 2, output.Variables["loop_index"])

	// Final pass falls through to the next step.
	output, err = step.Execute(context.Background(), models.ExecutionContext{
		Variables: map[string]any{"loop_index": 2},
	}, testLogger())
	require.NoError(t, err)
	assert.Nil(t, output.Directive)
	assert.Equal(t, 3, output.Variables["loop_index"])
}

func TestLoopAcceptsNativeIntConfig(t *testing.T) {
	step, err := NewLoopFactory().Create(map[string]any{
		"count":      2,
		"body_start": 1,
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{Variables: map[string]any{}}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, output.Directive)
	assert.Equal(t, 1, *output.Directive.SkipToIndex)
}

func TestConditionBranchAcceptsNativeIntIndex(t *testing.T) {
	step, err := NewConditionFactory().Create(map[string]any{
		"value":   true,
		"on_true": map[string]any{"skip_to_index": 7},
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, output.Directive)
	assert.Equal(t, 7, *output.Directive.SkipToIndex)
}

func TestBreakEmitsHaltDirective(t *testing.T) {
	step, err := NewBreakFactory().Create(map[string]any{})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	assert.True(t, output.Success)
	require.NotNil(t, output.Directive)
	assert.True(t, output.Directive.Halt)
}

func TestContinueEmitsSkipDirective(t *testing.T) {
	step, err := NewContinueFactory().Create(map[string]any{"skip_to_index": float64(4)})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	require.NotNil(t, output.Directive)
	assert.Equal(t, 4, *output.Directive.SkipToIndex)
}

func TestContinueAcceptsNativeIntIndex(t *testing.T) {
	step, err := NewContinueFactory().Create(map[string]any{"skip_to_index": 4})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	require.NotNil(t, output.Directive)
	assert.Equal(t, 4, *output.Directive.SkipToIndex)
}

func TestContinueRejectsMissingIndex(t *testing.T) {
	_, err := NewContinueFactory().Create(map[string]any{})
	assert.Error(t, err)
}
