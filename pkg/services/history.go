package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

// History records and serves the append-only audit trail. It is intentionally
// dumb: callers decide what gets recorded, the service only stamps identity
// and time.
type History struct {
	persistence persistence.Persistence
}

// NewHistory creates a new history service.
func NewHistory(persistence persistence.Persistence) *History {
	return &History{persistence: persistence}
}

// Record appends one history entry through the given persistence scope,
// filling in id and timestamp when absent. Entries are never updated.
func (h *History) Record(ctx context.Context, store persistence.Persistence, entry *models.HistoryEntry) error {
	if entry.TenantID == "" || !entry.EventType.Valid() {
		return NewServiceError("History.Record", "INVALID_HISTORY_ENTRY",
			"History entries need a tenant and a valid event type", ErrInvalidRequest)
	}

	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		entry.ID = id.String()
	}

	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now().UTC()
	}

	return store.History().Append(ctx, entry)
}

// EntityHistory returns the entity's audit trail newest first.
func (h *History) EntityHistory(ctx context.Context, tenantID string, entity models.EntityRef, limit, offset int) ([]*models.HistoryEntry, error) {
	if err := models.ValidateEntityType(entity.Type); err != nil {
		return nil, NewServiceError("History.EntityHistory", "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
	}

	return h.persistence.History().ListForEntity(ctx, tenantID, entity, limit, offset)
}

// AddComment appends a manual comment event to the entity's trail.
func (h *History) AddComment(ctx context.Context, tenantID string, entity models.EntityRef, actorID, comment string) (*models.HistoryEntry, error) {
	if err := models.ValidateEntityType(entity.Type); err != nil {
		return nil, NewServiceError("History.AddComment", "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
	}

	if comment == "" {
		return nil, NewServiceError("History.AddComment", "COMMENT_EMPTY",
			"Comment text cannot be empty", ErrInvalidRequest)
	}

	entry := &models.HistoryEntry{
		TenantID:    tenantID,
		Entity:      entity,
		EventType:   models.HistoryEventComment,
		Description: "Comment added",
		Comment:     comment,
		PerformedBy: actorID,
	}

	err := h.Record(ctx, h.persistence, entry)
	if err != nil {
		return nil, err
	}

	return entry, nil
}
