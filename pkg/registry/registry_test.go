package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

type noopStep struct{}

func (s *noopStep) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (*models.StepOutput, error) {
	return &models.StepOutput{Success: true}, nil
}

type noopFactory struct{}

func (f *noopFactory) ID() string          { return "noop" }
func (f *noopFactory) Name() string        { return "Noop" }
func (f *noopFactory) Description() string { return "Does nothing." }

func (f *noopFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label": map[string]any{"type": "string"},
		},
		"required":             []string{"label"},
		"additionalProperties": false,
	}
}

func (f *noopFactory) Create(_ map[string]any) (protocol.Step, error) {
	return &noopStep{}, nil
}

func TestCreateStepUnregisteredTypeIsError(t *testing.T) {
	r := NewRegistry(slog.Default())

	_, err := r.CreateStep("missing-type", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestCreateStepValidatesConfigurationAgainstSchema(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.RegisterStep(&noopFactory{})

	_, err := r.CreateStep("noop", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = r.CreateStep("noop", map[string]any{"label": "ok", "extra": true})
	require.Error(t, err)

	step, err := r.CreateStep("noop", map[string]any{"label": "ok"})
	require.NoError(t, err)
	assert.NotNil(t, step)
}

func TestAvailableSteps(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.RegisterStep(&noopFactory{})

	factories := r.AvailableSteps()
	require.Len(t, factories, 1)
	assert.Equal(t, "noop", factories[0].ID())
}
