package memory

import (
	"context"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

type cursorRepository struct {
	p *Persistence
}

func cursorKey(tenantID string, entity models.EntityRef) string {
	return tenantID + "|" + entity.String()
}

func copyCursor(cursor *models.EntityCursor) *models.EntityCursor {
	copied := *cursor

	return &copied
}

func (r *cursorRepository) Get(_ context.Context, tenantID string, entity models.EntityRef) (*models.EntityCursor, error) {
	var cursor *models.EntityCursor

	r.p.read(func(s *store) {
		if existing, ok := s.cursors[cursorKey(tenantID, entity)]; ok {
			cursor = copyCursor(existing)
		}
	})

	if cursor == nil {
		return nil, persistence.NewStorageError("Get", "cursor", entity.String(), persistence.ErrCursorNotFound)
	}

	return cursor, nil
}

func (r *cursorRepository) Upsert(_ context.Context, cursor *models.EntityCursor, expectedVersion int64) error {
	var err error

	key := cursorKey(cursor.TenantID, cursor.Entity)

	r.p.write(func(s *store) {
		existing, exists := s.cursors[key]

		switch {
		case expectedVersion == 0 && exists:
			err = persistence.NewStorageError("Upsert", "cursor", cursor.Entity.String(), persistence.ErrCursorConflict)
		case expectedVersion != 0 && (!exists || existing.Version != expectedVersion):
			err = persistence.NewStorageError("Upsert", "cursor", cursor.Entity.String(), persistence.ErrCursorConflict)
		default:
			s.cursors[key] = copyCursor(cursor)
		}
	})

	return err
}
