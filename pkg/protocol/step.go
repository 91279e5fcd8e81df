// Package protocol defines the contracts between the workflow runner and
// step implementations.
package protocol

import (
	"context"
	"log/slog"

	"github.com/flowkite/flowkite/pkg/models"
)

// Step executes one unit of work. The configuration the step was created
// from has already had its placeholders resolved. Implementations convert
// expected failures (element not found, request timeout, pool at capacity)
// into a StepOutput with Success=false; a non-nil error is reserved for
// failures the handler could not express as a result.
type Step interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error)
}

// StepFactory creates Step instances from resolved configuration.
type StepFactory interface {
	ID() string
	Name() string
	Description() string

	// Schema returns the JSON schema the raw step configuration is
	// validated against before dispatch.
	Schema() map[string]any

	Create(config map[string]any) (Step, error)
}
