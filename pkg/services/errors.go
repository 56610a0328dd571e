// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/mfgworks/flowgate/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidCode             = errors.New("code must be uppercase letters, digits and underscores")
	ErrInvalidEntityType       = errors.New("unsupported entity type")
	ErrInvalidStateType        = errors.New("invalid state type")
	ErrInvalidConditions       = errors.New("invalid transition conditions")
	ErrCommentRequired         = errors.New("comments are required for this transition")
	ErrApproverRequired        = errors.New("approval requires an approver user or role")
	ErrWorkflowNil             = errors.New("workflow cannot be nil")
	ErrInitialStateRequired    = errors.New("workflow must have exactly one initial state")
	ErrCrossWorkflowTransition = errors.New("transition states must belong to the same workflow")

	// Authorization Errors (403 Forbidden).
	ErrNotAuthorizedApprover = errors.New("user is not authorized to resolve this approval")
	ErrMissingRequiredRole   = errors.New("user lacks a role required by this transition")

	// Business Logic Conflicts (409 Conflict).
	ErrWorkflowInactive        = errors.New("workflow is not active")
	ErrSystemWorkflow          = errors.New("system workflows cannot be modified or deleted")
	ErrImmutableField          = errors.New("field is immutable after creation")
	ErrApprovalAlreadyResolved = errors.New("approval is already resolved")
	ErrStaleEntityState        = errors.New("entity state changed since it was read")

	// Transition Denials (422 Unprocessable Entity).
	ErrTransitionDenied = errors.New("transition conditions are not met")

	// Execution Errors (500 Internal Server Error).
	ErrActionFailed = errors.New("action execution failed")
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

// NewServiceError creates a new service error with context.
func NewServiceError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrInvalidEntityType) ||
		errors.Is(err, ErrInvalidStateType) ||
		errors.Is(err, ErrInvalidConditions) ||
		errors.Is(err, ErrCommentRequired) ||
		errors.Is(err, ErrApproverRequired) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrInitialStateRequired) ||
		errors.Is(err, ErrCrossWorkflowTransition)
}

// IsAuthorizationError checks if an error should return HTTP 403.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotAuthorizedApprover) ||
		errors.Is(err, ErrMissingRequiredRole)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowInactive) ||
		errors.Is(err, ErrSystemWorkflow) ||
		errors.Is(err, ErrImmutableField) ||
		errors.Is(err, ErrApprovalAlreadyResolved) ||
		errors.Is(err, ErrStaleEntityState) ||
		persistence.IsDuplicateCode(err)
}

// IsTransitionDenied checks if an error reports unmet transition conditions (HTTP 422).
func IsTransitionDenied(err error) bool {
	return errors.Is(err, ErrTransitionDenied)
}

// IsNotFound checks if an error indicates a missing record (HTTP 404).
func IsNotFound(err error) bool {
	return persistence.IsNotFound(err)
}

// IsExecutionError checks if an error reports a failed action (HTTP 500).
func IsExecutionError(err error) bool {
	return errors.Is(err, ErrActionFailed)
}
