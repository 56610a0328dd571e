// Package persistence provides the data storage abstraction for workflow
// definitions, approvals, history and entity cursors.
package persistence

import (
	"context"
	"time"

	"github.com/mfgworks/flowgate/pkg/models"
)

// WorkflowRepository stores workflow definitions. Workflows are tenant-scoped
// and soft-deleted; reads never return deleted rows.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Workflow, error)
	GetByCode(ctx context.Context, tenantID, code string) (*models.Workflow, error)

	// List returns the tenant's workflows, optionally filtered by entity
	// type when entityType is non-empty.
	List(ctx context.Context, tenantID string, entityType models.EntityType) ([]*models.Workflow, error)

	// Default returns the tenant's default workflow for the entity type, or
	// ErrWorkflowNotFound when none is marked default.
	Default(ctx context.Context, tenantID string, entityType models.EntityType) (*models.Workflow, error)

	Update(ctx context.Context, workflow *models.Workflow) error

	// ClearDefault unsets is_default on every workflow of the tenant and
	// entity type except the one identified by exceptID.
	ClearDefault(ctx context.Context, tenantID string, entityType models.EntityType, exceptID string) error

	// Delete soft-deletes the workflow by setting deleted_at.
	Delete(ctx context.Context, tenantID, id string) error
}

// StateRepository stores the nodes of a workflow's state machine. States are
// reached through their tenant-scoped workflow, so lookups take bare ids.
type StateRepository interface {
	Create(ctx context.Context, state *models.WorkflowState) error
	GetByID(ctx context.Context, id string) (*models.WorkflowState, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowState, error)

	// Initial returns the workflow's single INITIAL state.
	Initial(ctx context.Context, workflowID string) (*models.WorkflowState, error)

	Update(ctx context.Context, state *models.WorkflowState) error
	Delete(ctx context.Context, id string) error
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

// TransitionRepository stores the directed edges of a workflow's state
// machine.
type TransitionRepository interface {
	Create(ctx context.Context, transition *models.WorkflowTransition) error
	GetByID(ctx context.Context, id string) (*models.WorkflowTransition, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowTransition, error)

	// ListFromState returns the active transitions leaving a state, ordered
	// by position.
	ListFromState(ctx context.Context, fromStateID string) ([]*models.WorkflowTransition, error)

	Update(ctx context.Context, transition *models.WorkflowTransition) error
	Delete(ctx context.Context, id string) error
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

// ApprovalRepository stores approval requests. Approvals are never
// hard-deleted; resolution is a status update.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *models.Approval) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Approval, error)
	Update(ctx context.Context, approval *models.Approval) error

	// ResolvePending writes the resolved approval if and only if the stored
	// row is still PENDING, so two racing resolutions cannot both land. A
	// lost race returns ErrApprovalNotPending.
	ResolvePending(ctx context.Context, approval *models.Approval) error

	// PendingForUser returns PENDING approvals assigned to the user directly
	// or through one of the given roles, ordered by priority weight
	// descending, then due date ascending with undated approvals last.
	PendingForUser(ctx context.Context, tenantID, userID string, roles []string) ([]*models.Approval, error)

	// PendingForEntity returns PENDING approvals gating the given entity.
	PendingForEntity(ctx context.Context, tenantID string, entity models.EntityRef) ([]*models.Approval, error)

	// Overdue returns PENDING approvals across all tenants whose due date
	// has passed, oldest due first, capped at limit.
	Overdue(ctx context.Context, now time.Time, limit int) ([]*models.Approval, error)
}

// HistoryRepository stores the append-only audit trail.
type HistoryRepository interface {
	Append(ctx context.Context, entry *models.HistoryEntry) error

	// ListForEntity returns the entity's history newest first, ties broken
	// by id. A limit of zero means no cap.
	ListForEntity(ctx context.Context, tenantID string, entity models.EntityRef, limit, offset int) ([]*models.HistoryEntry, error)
}

// CursorRepository stores the per-entity projection of current workflow
// state.
type CursorRepository interface {
	Get(ctx context.Context, tenantID string, entity models.EntityRef) (*models.EntityCursor, error)

	// Upsert writes the cursor guarded by optimistic concurrency. When
	// expectedVersion is zero the cursor must not exist yet; otherwise the
	// stored version must equal expectedVersion. On success the stored
	// version becomes cursor.Version. A mismatch returns ErrCursorConflict.
	Upsert(ctx context.Context, cursor *models.EntityCursor, expectedVersion int64) error
}

// Persistence aggregates the repositories behind one storage backend.
type Persistence interface {
	Workflows() WorkflowRepository
	States() StateRepository
	Transitions() TransitionRepository
	Approvals() ApprovalRepository
	History() HistoryRepository
	Cursors() CursorRepository

	// InTransaction runs fn against a Persistence whose writes commit or
	// roll back atomically. fn returning an error rolls everything back.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Persistence) error) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
