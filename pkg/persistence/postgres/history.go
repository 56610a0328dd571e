package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mfgworks/flowgate/pkg/models"
)

const historyColumns = `
		id
	  , tenant_id
	  , entity_type
	  , entity_id
	  , workflow_id
	  , from_state_id
	  , to_state_id
	  , transition_id
	  , approval_id
	  , event_type
	  , description
	  , comment
	  , performed_by
	  , performed_at
	  , metadata
`

// HistoryRepository handles the append-only audit trail. Entries are never
// updated or deleted.
type HistoryRepository struct {
	q      querier
	logger *slog.Logger
}

func (r *HistoryRepository) Append(ctx context.Context, entry *models.HistoryEntry) error {
	metadataJSON, err := marshalJSONB(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal history metadata: %w", err)
	}

	query := `
		INSERT INTO workflow_history (id, tenant_id, entity_type, entity_id,
			workflow_id, from_state_id, to_state_id, transition_id, approval_id,
			event_type, description, comment, performed_by, performed_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.q.ExecContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.Entity.Type,
		entry.Entity.ID,
		nullableString(entry.WorkflowID),
		nullableString(entry.FromStateID),
		nullableString(entry.ToStateID),
		nullableString(entry.TransitionID),
		nullableString(entry.ApprovalID),
		entry.EventType,
		nullableString(entry.Description),
		nullableString(entry.Comment),
		nullableString(entry.PerformedBy),
		entry.PerformedAt,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

func (r *HistoryRepository) ListForEntity(ctx context.Context, tenantID string, entity models.EntityRef, limit, offset int) ([]*models.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM workflow_history
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY performed_at DESC, id DESC
		OFFSET $4
	`
	args := []any{tenantID, entity.Type, entity.ID, offset}

	if limit > 0 {
		query += " LIMIT $5"
		args = append(args, limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	entries := make([]*models.HistoryEntry, 0)

	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

func scanHistoryEntry(row scanner) (*models.HistoryEntry, error) {
	var (
		entry models.HistoryEntry

		workflowID, fromStateID, toStateID sql.NullString
		transitionID, approvalID           sql.NullString
		description, comment, performedBy  sql.NullString
		metadataJSON                       []byte
	)

	err := row.Scan(
		&entry.ID,
		&entry.TenantID,
		&entry.Entity.Type,
		&entry.Entity.ID,
		&workflowID,
		&fromStateID,
		&toStateID,
		&transitionID,
		&approvalID,
		&entry.EventType,
		&description,
		&comment,
		&performedBy,
		&entry.PerformedAt,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}

	entry.WorkflowID = workflowID.String
	entry.FromStateID = fromStateID.String
	entry.ToStateID = toStateID.String
	entry.TransitionID = transitionID.String
	entry.ApprovalID = approvalID.String
	entry.Description = description.String
	entry.Comment = comment.String
	entry.PerformedBy = performedBy.String

	err = unmarshalJSONB(metadataJSON, &entry.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal history metadata: %w", err)
	}

	return &entry, nil
}
