// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrStateNotFound indicates a workflow state was not found by the given identifier.
	ErrStateNotFound = errors.New("workflow state not found")

	// ErrTransitionNotFound indicates a workflow transition was not found by the given identifier.
	ErrTransitionNotFound = errors.New("workflow transition not found")

	// ErrApprovalNotFound indicates an approval was not found by the given identifier.
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrCursorNotFound indicates no workflow state is recorded for the entity.
	ErrCursorNotFound = errors.New("entity cursor not found")

	// ErrApprovalNotPending indicates a resolution raced with another one.
	ErrApprovalNotPending = errors.New("approval is no longer pending")

	// ErrDuplicateCode indicates a code collision inside its uniqueness scope.
	ErrDuplicateCode = errors.New("code already in use")

	// ErrCursorConflict indicates the cursor changed since it was read.
	ErrCursorConflict = errors.New("entity cursor version conflict")
)

// StorageError wraps repository errors with operation context.
type StorageError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Create", "Update")
	Kind     string // Record kind (e.g., "workflow", "approval")
	Key      string // Record identifier if applicable
	TenantID string // Tenant scope if applicable
	Err      error  // Underlying error
}

func (e *StorageError) Error() string {
	if e.TenantID != "" {
		return fmt.Sprintf("%s operation failed for %s %s in tenant %s: %v", e.Op, e.Kind, e.Key, e.TenantID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for storage errors.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStorageError creates a new storage error with context.
func NewStorageError(op, kind, key string, err error) *StorageError {
	return &StorageError{
		Op:   op,
		Kind: kind,
		Key:  key,
		Err:  err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsStateNotFound checks if an error indicates a workflow state was not found.
func IsStateNotFound(err error) bool {
	return errors.Is(err, ErrStateNotFound)
}

// IsTransitionNotFound checks if an error indicates a transition was not found.
func IsTransitionNotFound(err error) bool {
	return errors.Is(err, ErrTransitionNotFound)
}

// IsApprovalNotFound checks if an error indicates an approval was not found.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}

// IsApprovalNotPending checks if an error indicates a lost resolution race.
func IsApprovalNotPending(err error) bool {
	return errors.Is(err, ErrApprovalNotPending)
}

// IsCursorNotFound checks if an error indicates an entity cursor was not found.
func IsCursorNotFound(err error) bool {
	return errors.Is(err, ErrCursorNotFound)
}

// IsDuplicateCode checks if an error indicates a code uniqueness violation.
func IsDuplicateCode(err error) bool {
	return errors.Is(err, ErrDuplicateCode)
}

// IsCursorConflict checks if an error indicates an optimistic concurrency failure.
func IsCursorConflict(err error) bool {
	return errors.Is(err, ErrCursorConflict)
}

// IsNotFound checks if an error indicates any record was not found.
func IsNotFound(err error) bool {
	return IsWorkflowNotFound(err) ||
		IsStateNotFound(err) ||
		IsTransitionNotFound(err) ||
		IsApprovalNotFound(err) ||
		IsCursorNotFound(err)
}
