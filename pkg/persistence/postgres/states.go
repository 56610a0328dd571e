package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

const stateColumns = `
		id
	  , workflow_id
	  , code
	  , name
	  , type
	  , color
	  , icon
	  , position
	  , requires_approval
	  , entry_actions
	  , metadata
	  , is_active
	  , created_at
	  , updated_at
`

// StateRepository handles workflow state database operations.
type StateRepository struct {
	q      querier
	logger *slog.Logger
}

func (r *StateRepository) Create(ctx context.Context, state *models.WorkflowState) error {
	entryActionsJSON, err := marshalJSONB(state.EntryActions)
	if err != nil {
		return fmt.Errorf("failed to marshal entry actions: %w", err)
	}

	metadataJSON, err := marshalJSONB(state.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal state metadata: %w", err)
	}

	query := `
		INSERT INTO workflow_states (id, workflow_id, code, name, type, color, icon,
			position, requires_approval, entry_actions, metadata, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.q.ExecContext(ctx, query,
		state.ID,
		state.WorkflowID,
		state.Code,
		state.Name,
		state.Type,
		nullableString(state.Color),
		nullableString(state.Icon),
		state.Position,
		state.RequiresApproval,
		entryActionsJSON,
		metadataJSON,
		state.IsActive,
		state.CreatedAt,
		state.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Create", "state", state.ID, translateError(err))
	}

	return nil
}

func (r *StateRepository) GetByID(ctx context.Context, id string) (*models.WorkflowState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM workflow_states
		WHERE id = $1
	`

	state, err := scanState(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStorageError("GetByID", "state", id, persistence.ErrStateNotFound)
		}

		return nil, fmt.Errorf("failed to scan state: %w", err)
	}

	return state, nil
}

func (r *StateRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM workflow_states
		WHERE workflow_id = $1
		ORDER BY position, code
	`

	rows, err := r.q.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	states := make([]*models.WorkflowState, 0)

	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}

		states = append(states, state)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating states: %w", err)
	}

	return states, nil
}

func (r *StateRepository) Initial(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM workflow_states
		WHERE workflow_id = $1 AND type = $2
	`

	state, err := scanState(r.q.QueryRowContext(ctx, query, workflowID, models.StateTypeInitial))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStorageError("Initial", "state", workflowID, persistence.ErrStateNotFound)
		}

		return nil, fmt.Errorf("failed to scan state: %w", err)
	}

	return state, nil
}

func (r *StateRepository) Update(ctx context.Context, state *models.WorkflowState) error {
	entryActionsJSON, err := marshalJSONB(state.EntryActions)
	if err != nil {
		return fmt.Errorf("failed to marshal entry actions: %w", err)
	}

	metadataJSON, err := marshalJSONB(state.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal state metadata: %w", err)
	}

	query := `
		UPDATE workflow_states SET
			name = $2,
			color = $3,
			icon = $4,
			position = $5,
			requires_approval = $6,
			entry_actions = $7,
			metadata = $8,
			is_active = $9,
			updated_at = $10
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		state.ID,
		state.Name,
		nullableString(state.Color),
		nullableString(state.Icon),
		state.Position,
		state.RequiresApproval,
		entryActionsJSON,
		metadataJSON,
		state.IsActive,
		state.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Update", "state", state.ID, translateError(err))
	}

	return requireRow(result, "Update", "state", state.ID, persistence.ErrStateNotFound)
}

func (r *StateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM workflow_states WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	return requireRow(result, "Delete", "state", id, persistence.ErrStateNotFound)
}

func (r *StateRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM workflow_states WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow states: %w", err)
	}

	return nil
}

func scanState(row scanner) (*models.WorkflowState, error) {
	var (
		state            models.WorkflowState
		color, icon      sql.NullString
		entryActionsJSON []byte
		metadataJSON     []byte
	)

	err := row.Scan(
		&state.ID,
		&state.WorkflowID,
		&state.Code,
		&state.Name,
		&state.Type,
		&color,
		&icon,
		&state.Position,
		&state.RequiresApproval,
		&entryActionsJSON,
		&metadataJSON,
		&state.IsActive,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.Color = color.String
	state.Icon = icon.String

	err = unmarshalJSONB(entryActionsJSON, &state.EntryActions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry actions: %w", err)
	}

	err = unmarshalJSONB(metadataJSON, &state.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal state metadata: %w", err)
	}

	return &state, nil
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
