// Package services exposes the engine facade the HTTP layer and triggers
// call into, plus standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/queue"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")
	ErrEmptyOwner     = errors.New("owner cannot be empty")
	ErrEmptyWorkflow  = errors.New("workflow id cannot be empty")
	ErrEmptyExecution = errors.New("execution id cannot be empty")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyOwner) ||
		errors.Is(err, ErrEmptyWorkflow) ||
		errors.Is(err, ErrEmptyExecution) ||
		errors.Is(err, queue.ErrWorkflowNotRunnable) ||
		errors.Is(err, models.ErrInvalidSchedule)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
