package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

const testTenant = "tenant-1"

func newTestWorkflow(code string) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:         uuid.New().String(),
		TenantID:   testTenant,
		Name:       "Workflow " + code,
		Code:       code,
		EntityType: models.EntityTypeNCR,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestState(workflowID, code string, stateType models.StateType, position int) *models.WorkflowState {
	now := time.Now().UTC()

	return &models.WorkflowState{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Code:       code,
		Name:       code,
		Type:       stateType,
		Position:   position,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestWorkflowRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := newTestWorkflow("NCR_REVIEW")
	workflow.Config = map[string]any{"sla_hours": float64(24)}
	require.NoError(t, p.Workflows().Create(ctx, workflow))

	loaded, err := p.Workflows().GetByID(ctx, testTenant, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "NCR_REVIEW", loaded.Code)
	assert.Equal(t, models.EntityTypeNCR, loaded.EntityType)
	assert.Equal(t, float64(24), loaded.Config["sla_hours"])

	byCode, err := p.Workflows().GetByCode(ctx, testTenant, "NCR_REVIEW")
	require.NoError(t, err)
	assert.Equal(t, workflow.ID, byCode.ID)

	// Duplicate code in the same tenant violates the partial unique index.
	duplicate := newTestWorkflow("NCR_REVIEW")
	err = p.Workflows().Create(ctx, duplicate)
	require.Error(t, err)
	assert.True(t, persistence.IsDuplicateCode(err))

	// Another tenant may reuse the code.
	other := newTestWorkflow("NCR_REVIEW")
	other.TenantID = "tenant-2"
	require.NoError(t, p.Workflows().Create(ctx, other))

	_, err = p.Workflows().GetByID(ctx, "tenant-2", workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	require.NoError(t, p.Workflows().Delete(ctx, testTenant, workflow.ID))

	_, err = p.Workflows().GetByID(ctx, testTenant, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	// The code is free again after the soft delete.
	require.NoError(t, p.Workflows().Create(ctx, newTestWorkflow("NCR_REVIEW")))
}

func TestWorkflowRepository_Default(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	first := newTestWorkflow("FIRST")
	first.IsDefault = true
	require.NoError(t, p.Workflows().Create(ctx, first))

	second := newTestWorkflow("SECOND")
	second.IsDefault = true
	require.NoError(t, p.Workflows().Create(ctx, second))
	require.NoError(t, p.Workflows().ClearDefault(ctx, testTenant, models.EntityTypeNCR, second.ID))

	def, err := p.Workflows().Default(ctx, testTenant, models.EntityTypeNCR)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)
}

func TestStateRepository_SingleInitialEnforced(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := newTestWorkflow("NCR_REVIEW")
	require.NoError(t, p.Workflows().Create(ctx, workflow))

	draft := newTestState(workflow.ID, "DRAFT", models.StateTypeInitial, 0)
	require.NoError(t, p.States().Create(ctx, draft))

	second := newTestState(workflow.ID, "OPEN", models.StateTypeInitial, 1)
	err := p.States().Create(ctx, second)
	require.Error(t, err)
	assert.True(t, persistence.IsDuplicateCode(err))

	initial, err := p.States().Initial(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, initial.ID)
}

func TestTransitionRepository_RoundTrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := newTestWorkflow("NCR_REVIEW")
	require.NoError(t, p.Workflows().Create(ctx, workflow))

	draft := newTestState(workflow.ID, "DRAFT", models.StateTypeInitial, 0)
	closed := newTestState(workflow.ID, "CLOSED", models.StateTypeFinal, 1)
	require.NoError(t, p.States().Create(ctx, draft))
	require.NoError(t, p.States().Create(ctx, closed))

	now := time.Now().UTC()
	transition := &models.WorkflowTransition{
		ID:          uuid.New().String(),
		WorkflowID:  workflow.ID,
		FromStateID: draft.ID,
		ToStateID:   closed.ID,
		Code:        "CLOSE",
		Name:        "Close",
		Conditions: &models.TransitionConditions{
			RequiredRoles:  []string{"QUALITY_MANAGER"},
			RequiredFields: []string{"root_cause"},
			Rules: []models.ConditionRule{
				{Field: "severity", Operator: models.OperatorIn, Value: []any{"LOW", "MEDIUM"}},
			},
		},
		PostActions: []models.ActionDescriptor{
			{Action: models.ActionSendNotification, Params: map[string]any{"message": "closed"}},
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, p.Transitions().Create(ctx, transition))

	loaded, err := p.Transitions().GetByID(ctx, transition.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Conditions)
	assert.Equal(t, []string{"QUALITY_MANAGER"}, loaded.Conditions.RequiredRoles)
	require.Len(t, loaded.Conditions.Rules, 1)
	assert.Equal(t, models.OperatorIn, loaded.Conditions.Rules[0].Operator)
	require.Len(t, loaded.PostActions, 1)
	assert.Equal(t, models.ActionSendNotification, loaded.PostActions[0].Action)

	// Inactive transitions are excluded from ListFromState.
	loaded.IsActive = false
	loaded.UpdatedAt = time.Now().UTC()
	require.NoError(t, p.Transitions().Update(ctx, loaded))

	fromDraft, err := p.Transitions().ListFromState(ctx, draft.ID)
	require.NoError(t, err)
	assert.Empty(t, fromDraft)
}

func TestApprovalRepository_ResolvePendingRace(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	now := time.Now().UTC()
	due := now.Add(models.DefaultApprovalDueWindow)
	approval := &models.Approval{
		ID:           uuid.New().String(),
		TenantID:     testTenant,
		Entity:       models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
		Title:        "Approve closure",
		ApproverRole: "QUALITY_MANAGER",
		Status:       models.ApprovalStatusPending,
		Priority:     models.PriorityMedium,
		RequestedAt:  now,
		DueAt:        &due,
		Metadata:     map[string]any{"transition_id": "t-1"},
	}
	require.NoError(t, p.Approvals().Create(ctx, approval))

	resolved := *approval
	resolved.Status = models.ApprovalStatusApproved
	resolved.ResolvedBy = "manager-1"
	resolved.ResolvedAt = &now
	require.NoError(t, p.Approvals().ResolvePending(ctx, &resolved))

	// A second resolution loses.
	again := *approval
	again.Status = models.ApprovalStatusRejected
	err := p.Approvals().ResolvePending(ctx, &again)
	require.Error(t, err)
	assert.True(t, persistence.IsApprovalNotPending(err))

	loaded, err := p.Approvals().GetByID(ctx, testTenant, approval.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, loaded.Status)
	assert.Equal(t, "t-1", loaded.Metadata["transition_id"])
}

func TestApprovalRepository_PendingOrdering(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	now := time.Now().UTC()
	soon := now.Add(time.Hour)
	late := now.Add(72 * time.Hour)

	create := func(id string, priority models.ApprovalPriority, due *time.Time) {
		require.NoError(t, p.Approvals().Create(ctx, &models.Approval{
			ID:           id,
			TenantID:     testTenant,
			Entity:       models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
			Title:        "Approve",
			ApproverRole: "QUALITY_MANAGER",
			Status:       models.ApprovalStatusPending,
			Priority:     priority,
			RequestedAt:  now,
			DueAt:        due,
		}))
	}

	lowID := uuid.New().String()
	highLateID := uuid.New().String()
	highSoonID := uuid.New().String()
	highNoDueID := uuid.New().String()

	create(lowID, models.PriorityLow, &soon)
	create(highLateID, models.PriorityHigh, &late)
	create(highSoonID, models.PriorityHigh, &soon)
	create(highNoDueID, models.PriorityHigh, nil)

	pending, err := p.Approvals().PendingForUser(ctx, testTenant, "user-1", []string{"QUALITY_MANAGER"})
	require.NoError(t, err)
	require.Len(t, pending, 4)
	assert.Equal(t, highSoonID, pending[0].ID)
	assert.Equal(t, highLateID, pending[1].ID)
	assert.Equal(t, highNoDueID, pending[2].ID)
	assert.Equal(t, lowID, pending[3].ID)

	past := now.Add(-time.Hour)
	overdueID := uuid.New().String()
	create(overdueID, models.PriorityMedium, &past)

	overdue, err := p.Approvals().Overdue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, overdueID, overdue[0].ID)
}

func TestHistoryRepository_OrderingAndPagination(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	entity := models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"}
	base := time.Now().UTC().Add(-time.Hour)

	for i := range 3 {
		require.NoError(t, p.History().Append(ctx, &models.HistoryEntry{
			ID:          uuid.New().String(),
			TenantID:    testTenant,
			Entity:      entity,
			EventType:   models.HistoryEventTransition,
			Description: "step",
			PerformedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := p.History().ListForEntity(ctx, testTenant, entity, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].PerformedAt.After(entries[1].PerformedAt))
	assert.True(t, entries[1].PerformedAt.After(entries[2].PerformedAt))

	page, err := p.History().ListForEntity(ctx, testTenant, entity, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, entries[1].ID, page[0].ID)
}

func TestCursorRepository_OptimisticConcurrency(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	entity := models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"}
	cursor := &models.EntityCursor{
		TenantID:   testTenant,
		Entity:     entity,
		WorkflowID: uuid.New().String(),
		StateID:    uuid.New().String(),
		Version:    1,
		UpdatedAt:  time.Now().UTC(),
		UpdatedBy:  "user-1",
	}

	require.NoError(t, p.Cursors().Upsert(ctx, cursor, 0))

	// Enrolling twice conflicts.
	err := p.Cursors().Upsert(ctx, cursor, 0)
	require.Error(t, err)
	assert.True(t, persistence.IsCursorConflict(err))

	moved := *cursor
	moved.StateID = uuid.New().String()
	moved.Version = 2
	require.NoError(t, p.Cursors().Upsert(ctx, &moved, 1))

	// A writer holding the stale version loses.
	stale := *cursor
	stale.Version = 2
	err = p.Cursors().Upsert(ctx, &stale, 1)
	require.Error(t, err)
	assert.True(t, persistence.IsCursorConflict(err))

	loaded, err := p.Cursors().Get(ctx, testTenant, entity)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Equal(t, moved.StateID, loaded.StateID)
}

func TestInTransaction_RollsBackOnError(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := newTestWorkflow("NCR_REVIEW")
	sentinel := assert.AnError

	err := p.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		require.NoError(t, tx.Workflows().Create(ctx, workflow))

		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = p.Workflows().GetByID(ctx, testTenant, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}
