// Package services provides the application operations behind the API and CLI.
package services

import (
	"errors"
	"fmt"

	"github.com/residentdesk/facilityflow/pkg/bookings"
	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence"
	"github.com/residentdesk/facilityflow/pkg/workflow"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrBookingIDRequired    = errors.New("booking id is required")
	ErrInvalidDecision      = errors.New("invalid approval decision")

	// Business Logic Conflicts (409 Conflict).
	ErrWorkflowInactive = errors.New("workflow is not active")

	// Not Found (404).
	ErrTemplateNotFound  = errors.New("workflow template not found")
	ErrWorkflowNotFound  = persistence.ErrWorkflowNotFound
	ErrBookingNotFound   = bookings.ErrBookingNotFound
	ErrExecutionNotFound = executions.ErrExecutionNotFound
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

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrBookingIDRequired) ||
		errors.Is(err, ErrInvalidDecision) ||
		errors.Is(err, models.ErrInvalidStatus) ||
		errors.Is(err, models.ErrNoStartNode) ||
		errors.Is(err, models.ErrMultipleStartNodes) ||
		errors.Is(err, models.ErrDuplicateNodeID) ||
		errors.Is(err, models.ErrDanglingEdge) ||
		errors.Is(err, models.ErrUnknownNodeType) ||
		errors.Is(err, models.ErrNodeDataMismatch) ||
		errors.Is(err, workflow.ErrConditionEvaluation) ||
		errors.Is(err, workflow.ErrInvalidNodeConfig) ||
		errors.Is(err, persistence.ErrInvalidWorkflow)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowInactive) ||
		errors.Is(err, bookings.ErrBookingExists)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
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
