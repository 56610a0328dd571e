package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgworks/flowgate/pkg/events"
	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence/memory"
)

func newApprovalsService(t *testing.T) (*Approvals, *capturingPublisher, *memory.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := memory.NewPersistence()
	publisher := &capturingPublisher{}

	return NewApprovals(store, publisher, NewHistory(store), logger), publisher, store
}

func TestRequestStandalone_Defaults(t *testing.T) {
	service, publisher, _ := newApprovalsService(t)

	approval, err := service.RequestStandalone(context.Background(), ApprovalRequest{
		TenantID:     testTenant,
		Entity:       models.EntityRef{Type: models.EntityTypePurchaseOrder, ID: "po-1"},
		Type:         "spend",
		ApproverRole: "FINANCE_MANAGER",
		RequestedBy:  testActor,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusPending, approval.Status)
	assert.Equal(t, models.PriorityMedium, approval.Priority)
	assert.Equal(t, "Approval required", approval.Title)

	require.NotNil(t, approval.DueAt)
	assert.WithinDuration(t, time.Now().UTC().Add(models.DefaultApprovalDueWindow), *approval.DueAt, time.Minute)

	assert.Contains(t, publisher.types(), events.ApprovalRequestedEvent)
}

func TestRequestStandalone_ApproverRequired(t *testing.T) {
	service, _, _ := newApprovalsService(t)

	_, err := service.RequestStandalone(context.Background(), ApprovalRequest{
		TenantID:    testTenant,
		Entity:      models.EntityRef{Type: models.EntityTypePurchaseOrder, ID: "po-1"},
		RequestedBy: testActor,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrApproverRequired)
}

func TestRequestStandalone_InvalidPriority(t *testing.T) {
	service, _, _ := newApprovalsService(t)

	_, err := service.RequestStandalone(context.Background(), ApprovalRequest{
		TenantID:       testTenant,
		Entity:         models.EntityRef{Type: models.EntityTypePurchaseOrder, ID: "po-1"},
		ApproverUserID: "user-2",
		Priority:       "URGENT",
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestApplyActionParams_ExplicitFieldsWin(t *testing.T) {
	req := ApprovalRequest{ApproverRole: "QUALITY_MANAGER", Title: "Approve closure"}

	req.ApplyActionParams(map[string]any{
		"approver_role": "PLANT_MANAGER",
		"title":         "Generic title",
		"priority":      "HIGH",
		"due_hours":     float64(8),
	})

	assert.Equal(t, "QUALITY_MANAGER", req.ApproverRole)
	assert.Equal(t, "Approve closure", req.Title)
	assert.Equal(t, models.PriorityHigh, req.Priority)
	require.NotNil(t, req.DueAt)
	assert.WithinDuration(t, time.Now().UTC().Add(8*time.Hour), *req.DueAt, time.Minute)
}

func TestPending_InboxOrdering(t *testing.T) {
	service, _, _ := newApprovalsService(t)
	ctx := context.Background()

	soon := time.Now().UTC().Add(2 * time.Hour)

	low, err := service.RequestStandalone(ctx, ApprovalRequest{
		TenantID:       testTenant,
		Entity:         models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
		ApproverUserID: "user-2",
		Priority:       models.PriorityLow,
	})
	require.NoError(t, err)

	critical, err := service.RequestStandalone(ctx, ApprovalRequest{
		TenantID:     testTenant,
		Entity:       models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-2"},
		ApproverRole: "QUALITY_MANAGER",
		Priority:     models.PriorityCritical,
		DueAt:        &soon,
	})
	require.NoError(t, err)

	// user-2 also holds QUALITY_MANAGER, so both land in the inbox,
	// critical first.
	inbox, err := service.Pending(ctx, testTenant, "user-2", []string{"QUALITY_MANAGER"})
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, critical.ID, inbox[0].ID)
	assert.Equal(t, low.ID, inbox[1].ID)

	// A different user without the role sees nothing.
	empty, err := service.Pending(ctx, testTenant, "user-9", []string{"OPERATOR"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEscalate(t *testing.T) {
	service, publisher, _ := newApprovalsService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)

	approval, err := service.RequestStandalone(ctx, ApprovalRequest{
		TenantID:     testTenant,
		Entity:       models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
		ApproverRole: "QUALITY_MANAGER",
		DueAt:        &past,
	})
	require.NoError(t, err)

	escalated, err := service.Escalate(ctx, testTenant, approval.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusEscalated, escalated.Status)
	require.NotNil(t, escalated.ResolvedAt)
	assert.Contains(t, publisher.types(), events.ApprovalEscalatedEvent)

	// Escalating twice fails with the resolved status.
	_, err = service.Escalate(ctx, testTenant, approval.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrApprovalAlreadyResolved)
	assert.Contains(t, err.Error(), "Approval is already ESCALATED")
}
