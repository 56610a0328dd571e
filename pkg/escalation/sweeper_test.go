package escalation

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence/memory"
	"github.com/mfgworks/flowgate/pkg/services"
)

func TestSweep(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := memory.NewPersistence()
	approvals := services.NewApprovals(store, nil, services.NewHistory(store), logger)
	sweeper := NewSweeper(store, approvals, logger)

	past := time.Now().UTC().Add(-2 * time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	overdue, err := approvals.RequestStandalone(ctx, services.ApprovalRequest{
		TenantID:     "tenant-1",
		Entity:       models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
		ApproverRole: "QUALITY_MANAGER",
		DueAt:        &past,
	})
	require.NoError(t, err)

	onTime, err := approvals.RequestStandalone(ctx, services.ApprovalRequest{
		TenantID:     "tenant-1",
		Entity:       models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-2"},
		ApproverRole: "QUALITY_MANAGER",
		DueAt:        &future,
	})
	require.NoError(t, err)

	// Overdue approvals in other tenants are swept too.
	otherTenant, err := approvals.RequestStandalone(ctx, services.ApprovalRequest{
		TenantID:     "tenant-2",
		Entity:       models.EntityRef{Type: models.EntityTypeWorkOrder, ID: "wo-1"},
		ApproverRole: "PLANT_MANAGER",
		DueAt:        &past,
	})
	require.NoError(t, err)

	count, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	escalated, err := approvals.Get(ctx, "tenant-1", overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusEscalated, escalated.Status)

	untouched, err := approvals.Get(ctx, "tenant-1", onTime.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, untouched.Status)

	swept, err := approvals.Get(ctx, "tenant-2", otherTenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusEscalated, swept.Status)

	// A second pass finds nothing left to escalate.
	count, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
