package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

func newWorkflow(tenantID, code string, entityType models.EntityType) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Name:       "Workflow " + code,
		Code:       code,
		EntityType: entityType,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestWorkflowRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	workflow := newWorkflow("tenant-1", "NCR_STANDARD", models.EntityTypeNCR)
	require.NoError(t, p.Workflows().Create(ctx, workflow))

	loaded, err := p.Workflows().GetByID(ctx, "tenant-1", workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "NCR_STANDARD", loaded.Code)

	byCode, err := p.Workflows().GetByCode(ctx, "tenant-1", "NCR_STANDARD")
	require.NoError(t, err)
	assert.Equal(t, workflow.ID, byCode.ID)

	loaded.Name = "Renamed"
	require.NoError(t, p.Workflows().Update(ctx, loaded))

	require.NoError(t, p.Workflows().Delete(ctx, "tenant-1", workflow.ID))

	_, err = p.Workflows().GetByID(ctx, "tenant-1", workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	require.NoError(t, p.Workflows().Create(ctx, newWorkflow("tenant-1", "NCR_STANDARD", models.EntityTypeNCR)))

	err := p.Workflows().Create(ctx, newWorkflow("tenant-1", "NCR_STANDARD", models.EntityTypeNCR))
	assert.True(t, persistence.IsDuplicateCode(err))

	// Same code in another tenant is fine.
	require.NoError(t, p.Workflows().Create(ctx, newWorkflow("tenant-2", "NCR_STANDARD", models.EntityTypeNCR)))
}

func TestWorkflowRepository_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	workflow := newWorkflow("tenant-1", "NCR_STANDARD", models.EntityTypeNCR)
	require.NoError(t, p.Workflows().Create(ctx, workflow))

	_, err := p.Workflows().GetByID(ctx, "tenant-2", workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	workflows, err := p.Workflows().List(ctx, "tenant-2", "")
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestWorkflowRepository_DefaultAndClearDefault(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	first := newWorkflow("tenant-1", "NCR_A", models.EntityTypeNCR)
	first.IsDefault = true
	require.NoError(t, p.Workflows().Create(ctx, first))

	second := newWorkflow("tenant-1", "NCR_B", models.EntityTypeNCR)
	second.IsDefault = true
	require.NoError(t, p.Workflows().Create(ctx, second))

	require.NoError(t, p.Workflows().ClearDefault(ctx, "tenant-1", models.EntityTypeNCR, second.ID))

	def, err := p.Workflows().Default(ctx, "tenant-1", models.EntityTypeNCR)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	reloaded, err := p.Workflows().GetByID(ctx, "tenant-1", first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestStateRepository(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	workflowID := uuid.New().String()

	initial := &models.WorkflowState{
		ID: uuid.New().String(), WorkflowID: workflowID,
		Code: "DRAFT", Name: "Draft", Type: models.StateTypeInitial, Position: 0, IsActive: true,
	}
	review := &models.WorkflowState{
		ID: uuid.New().String(), WorkflowID: workflowID,
		Code: "REVIEW", Name: "Review", Type: models.StateTypeIntermediate, Position: 1, IsActive: true,
	}

	require.NoError(t, p.States().Create(ctx, review))
	require.NoError(t, p.States().Create(ctx, initial))

	err := p.States().Create(ctx, &models.WorkflowState{
		ID: uuid.New().String(), WorkflowID: workflowID, Code: "DRAFT", Name: "Dup", Type: models.StateTypeFinal,
	})
	assert.True(t, persistence.IsDuplicateCode(err))

	states, err := p.States().ListByWorkflow(ctx, workflowID)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "DRAFT", states[0].Code)

	found, err := p.States().Initial(ctx, workflowID)
	require.NoError(t, err)
	assert.Equal(t, initial.ID, found.ID)

	require.NoError(t, p.States().DeleteByWorkflow(ctx, workflowID))

	_, err = p.States().GetByID(ctx, initial.ID)
	assert.True(t, persistence.IsStateNotFound(err))
}

func TestTransitionRepository_ListFromState(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	workflowID := uuid.New().String()
	fromStateID := uuid.New().String()

	active := &models.WorkflowTransition{
		ID: uuid.New().String(), WorkflowID: workflowID,
		FromStateID: fromStateID, ToStateID: uuid.New().String(),
		Code: "SUBMIT", Name: "Submit", Position: 1, IsActive: true,
	}
	inactive := &models.WorkflowTransition{
		ID: uuid.New().String(), WorkflowID: workflowID,
		FromStateID: fromStateID, ToStateID: uuid.New().String(),
		Code: "LEGACY", Name: "Legacy", Position: 0, IsActive: false,
	}

	require.NoError(t, p.Transitions().Create(ctx, active))
	require.NoError(t, p.Transitions().Create(ctx, inactive))

	transitions, err := p.Transitions().ListFromState(ctx, fromStateID)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, "SUBMIT", transitions[0].Code)
}

func TestApprovalRepository_PendingOrdering(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	entity := models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"}
	soon := time.Now().UTC().Add(2 * time.Hour)
	later := time.Now().UTC().Add(30 * time.Hour)

	mk := func(id string, priority models.ApprovalPriority, due *time.Time, role string) *models.Approval {
		return &models.Approval{
			ID: id, TenantID: "tenant-1", Entity: entity,
			Title: "Approve " + id, ApproverRole: role,
			Status: models.ApprovalStatusPending, Priority: priority,
			RequestedAt: time.Now().UTC(), DueAt: due,
		}
	}

	require.NoError(t, p.Approvals().Create(ctx, mk("a-low", models.PriorityLow, &soon, "qa")))
	require.NoError(t, p.Approvals().Create(ctx, mk("a-high-late", models.PriorityHigh, &later, "qa")))
	require.NoError(t, p.Approvals().Create(ctx, mk("a-high-soon", models.PriorityHigh, &soon, "qa")))
	require.NoError(t, p.Approvals().Create(ctx, mk("a-high-nodue", models.PriorityHigh, nil, "qa")))

	pending, err := p.Approvals().PendingForUser(ctx, "tenant-1", "user-1", []string{"qa"})
	require.NoError(t, err)
	require.Len(t, pending, 4)

	ids := []string{pending[0].ID, pending[1].ID, pending[2].ID, pending[3].ID}
	assert.Equal(t, []string{"a-high-soon", "a-high-late", "a-high-nodue", "a-low"}, ids)
}

func TestApprovalRepository_PendingForUserDirectAssignment(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	direct := &models.Approval{
		ID: "a-direct", TenantID: "tenant-1",
		Entity: models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
		Title:  "Direct", ApproverUserID: "user-1",
		Status: models.ApprovalStatusPending, Priority: models.PriorityMedium,
	}
	otherRole := &models.Approval{
		ID: "a-role", TenantID: "tenant-1",
		Entity: models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-2"},
		Title:  "Role", ApproverRole: "plant_manager",
		Status: models.ApprovalStatusPending, Priority: models.PriorityMedium,
	}

	require.NoError(t, p.Approvals().Create(ctx, direct))
	require.NoError(t, p.Approvals().Create(ctx, otherRole))

	pending, err := p.Approvals().PendingForUser(ctx, "tenant-1", "user-1", []string{"qa"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a-direct", pending[0].ID)
}

func TestApprovalRepository_Overdue(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := &models.Approval{
		ID: "a-overdue", TenantID: "tenant-1",
		Entity: models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
		Title:  "Overdue", Status: models.ApprovalStatusPending,
		Priority: models.PriorityMedium, DueAt: &past,
	}
	notDue := &models.Approval{
		ID: "a-future", TenantID: "tenant-1",
		Entity: models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-2"},
		Title:  "Future", Status: models.ApprovalStatusPending,
		Priority: models.PriorityMedium, DueAt: &future,
	}

	require.NoError(t, p.Approvals().Create(ctx, overdue))
	require.NoError(t, p.Approvals().Create(ctx, notDue))

	found, err := p.Approvals().Overdue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a-overdue", found[0].ID)
}

func TestHistoryRepository_Ordering(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	entity := models.EntityRef{Type: models.EntityTypeWorkOrder, ID: "wo-1"}
	base := time.Now().UTC()

	for i, id := range []string{"h-1", "h-2", "h-3"} {
		entry := &models.HistoryEntry{
			ID: id, TenantID: "tenant-1", Entity: entity,
			EventType:   models.HistoryEventTransition,
			Description: "step", PerformedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, p.History().Append(ctx, entry))
	}

	entries, err := p.History().ListForEntity(ctx, "tenant-1", entity, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "h-3", entries[0].ID)
	assert.Equal(t, "h-1", entries[2].ID)

	page, err := p.History().ListForEntity(ctx, "tenant-1", entity, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "h-2", page[0].ID)
}

func TestCursorRepository_OptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	entity := models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"}
	cursor := &models.EntityCursor{
		TenantID: "tenant-1", Entity: entity,
		WorkflowID: "wf-1", StateID: "st-1", Version: 1,
		UpdatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.Cursors().Upsert(ctx, cursor, 0))

	// Creating again must conflict.
	err := p.Cursors().Upsert(ctx, cursor, 0)
	assert.True(t, persistence.IsCursorConflict(err))

	next := *cursor
	next.StateID = "st-2"
	next.Version = 2
	require.NoError(t, p.Cursors().Upsert(ctx, &next, 1))

	// Stale expected version must conflict.
	stale := next
	stale.Version = 3
	err = p.Cursors().Upsert(ctx, &stale, 1)
	assert.True(t, persistence.IsCursorConflict(err))

	loaded, err := p.Cursors().Get(ctx, "tenant-1", entity)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Equal(t, "st-2", loaded.StateID)
}

func TestInTransaction_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	sentinel := errors.New("boom")

	err := p.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		require.NoError(t, tx.Workflows().Create(ctx, newWorkflow("tenant-1", "NCR_TX", models.EntityTypeNCR)))

		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = p.Workflows().GetByCode(ctx, "tenant-1", "NCR_TX")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestInTransaction_CommitOnSuccess(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	err := p.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		return tx.Workflows().Create(ctx, newWorkflow("tenant-1", "NCR_TX", models.EntityTypeNCR))
	})
	require.NoError(t, err)

	loaded, err := p.Workflows().GetByCode(ctx, "tenant-1", "NCR_TX")
	require.NoError(t, err)
	assert.Equal(t, "NCR_TX", loaded.Code)
}
