// Package registry maps step type identifiers to their factories and
// validates raw step configuration against each factory's schema before a
// step instance is created.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/flowkite/flowkite/pkg/protocol"
)

type Registry struct {
	logger        *slog.Logger
	stepFactories map[string]protocol.StepFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log,
		stepFactories: make(map[string]protocol.StepFactory),
	}
}

func (r *Registry) RegisterStep(stepFactory protocol.StepFactory) {
	r.stepFactories[stepFactory.ID()] = stepFactory
}

// CreateStep validates the configuration against the factory's schema and
// returns a ready-to-run step instance. An unregistered type is a hard
// error; the runner never silently skips an unknown step.
func (r *Registry) CreateStep(stepType string, config map[string]any) (protocol.Step, error) {
	factory, ok := r.stepFactories[stepType]
	if !ok {
		return nil, fmt.Errorf("step type '%s' not registered", stepType)
	}

	if err := validateJSONSchema(config, factory.Schema()); err != nil {
		return nil, fmt.Errorf("invalid configuration for step type '%s': %w", stepType, err)
	}

	return factory.Create(config)
}

// AvailableSteps returns the registered factories, for schema discovery on
// the API.
func (r *Registry) AvailableSteps() []protocol.StepFactory {
	factories := make([]protocol.StepFactory, 0, len(r.stepFactories))
	for _, factory := range r.stepFactories {
		factories = append(factories, factory)
	}

	return factories
}

func validateJSONSchema(config map[string]any, schema map[string]any) error {
	if schema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, error := range result.Errors() {
			errors = append(errors, error.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
