package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence/memory"
)

func TestAddComment(t *testing.T) {
	store := memory.NewPersistence()
	service := NewHistory(store)
	entity := models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"}

	entry, err := service.AddComment(context.Background(), testTenant, entity, testActor, "checked with supplier")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.PerformedAt.IsZero())
	assert.Equal(t, models.HistoryEventComment, entry.EventType)

	entries, err := service.EntityHistory(context.Background(), testTenant, entity, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checked with supplier", entries[0].Comment)
}

func TestAddComment_Validation(t *testing.T) {
	service := NewHistory(memory.NewPersistence())

	_, err := service.AddComment(context.Background(), testTenant,
		models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"}, testActor, "")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = service.AddComment(context.Background(), testTenant,
		models.EntityRef{Type: "invoice", ID: "inv-1"}, testActor, "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEntityType)
}

func TestRecord_RequiresTenantAndEventType(t *testing.T) {
	store := memory.NewPersistence()
	service := NewHistory(store)

	err := service.Record(context.Background(), store, &models.HistoryEntry{
		Entity:    models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
		EventType: models.HistoryEventComment,
	})
	require.Error(t, err)

	err = service.Record(context.Background(), store, &models.HistoryEntry{
		TenantID:  testTenant,
		Entity:    models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-1"},
		EventType: "unknown",
	})
	require.Error(t, err)
}
