package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

// CursorRepository stores the per-entity projection of current workflow
// state, guarded by optimistic concurrency.
type CursorRepository struct {
	q querier
}

func (r *CursorRepository) Get(ctx context.Context, tenantID string, entity models.EntityRef) (*models.EntityCursor, error) {
	query := `
		SELECT
			tenant_id
		  , entity_type
		  , entity_id
		  , workflow_id
		  , state_id
		  , version
		  , updated_at
		  , updated_by
		FROM entity_cursors
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
	`

	var (
		cursor    models.EntityCursor
		updatedBy sql.NullString
	)

	err := r.q.QueryRowContext(ctx, query, tenantID, entity.Type, entity.ID).Scan(
		&cursor.TenantID,
		&cursor.Entity.Type,
		&cursor.Entity.ID,
		&cursor.WorkflowID,
		&cursor.StateID,
		&cursor.Version,
		&cursor.UpdatedAt,
		&updatedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStorageError("Get", "cursor", entity.String(), persistence.ErrCursorNotFound)
		}

		return nil, fmt.Errorf("failed to scan cursor: %w", err)
	}

	cursor.UpdatedBy = updatedBy.String

	return &cursor, nil
}

// Upsert writes the cursor if and only if the stored version matches
// expectedVersion; zero means the cursor must not exist yet.
func (r *CursorRepository) Upsert(ctx context.Context, cursor *models.EntityCursor, expectedVersion int64) error {
	var (
		result sql.Result
		err    error
	)

	if expectedVersion == 0 {
		query := `
			INSERT INTO entity_cursors (tenant_id, entity_type, entity_id,
				workflow_id, state_id, version, updated_at, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (tenant_id, entity_type, entity_id) DO NOTHING
		`

		result, err = r.q.ExecContext(ctx, query,
			cursor.TenantID,
			cursor.Entity.Type,
			cursor.Entity.ID,
			cursor.WorkflowID,
			cursor.StateID,
			cursor.Version,
			cursor.UpdatedAt,
			nullableString(cursor.UpdatedBy),
		)
	} else {
		query := `
			UPDATE entity_cursors SET
				workflow_id = $4,
				state_id = $5,
				version = $6,
				updated_at = $7,
				updated_by = $8
			WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3 AND version = $9
		`

		result, err = r.q.ExecContext(ctx, query,
			cursor.TenantID,
			cursor.Entity.Type,
			cursor.Entity.ID,
			cursor.WorkflowID,
			cursor.StateID,
			cursor.Version,
			cursor.UpdatedAt,
			nullableString(cursor.UpdatedBy),
			expectedVersion,
		)
	}

	if err != nil {
		return fmt.Errorf("failed to upsert cursor: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStorageError("Upsert", "cursor", cursor.Entity.String(), persistence.ErrCursorConflict)
	}

	return nil
}
