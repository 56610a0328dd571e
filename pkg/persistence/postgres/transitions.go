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

const transitionColumns = `
		id
	  , workflow_id
	  , from_state_id
	  , to_state_id
	  , code
	  , name
	  , requires_approval
	  , requires_comment
	  , conditions
	  , pre_actions
	  , post_actions
	  , position
	  , is_active
	  , created_at
	  , updated_at
`

// TransitionRepository handles workflow transition database operations.
type TransitionRepository struct {
	q      querier
	logger *slog.Logger
}

func (r *TransitionRepository) Create(ctx context.Context, transition *models.WorkflowTransition) error {
	conditionsJSON, preJSON, postJSON, err := marshalTransitionJSON(transition)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_transitions (id, workflow_id, from_state_id, to_state_id,
			code, name, requires_approval, requires_comment, conditions, pre_actions,
			post_actions, position, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.q.ExecContext(ctx, query,
		transition.ID,
		transition.WorkflowID,
		transition.FromStateID,
		transition.ToStateID,
		transition.Code,
		transition.Name,
		transition.RequiresApproval,
		transition.RequiresComment,
		conditionsJSON,
		preJSON,
		postJSON,
		transition.Position,
		transition.IsActive,
		transition.CreatedAt,
		transition.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Create", "transition", transition.ID, translateError(err))
	}

	return nil
}

func (r *TransitionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTransition, error) {
	query := `
		SELECT ` + transitionColumns + `
		FROM workflow_transitions
		WHERE id = $1
	`

	transition, err := scanTransition(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStorageError("GetByID", "transition", id, persistence.ErrTransitionNotFound)
		}

		return nil, fmt.Errorf("failed to scan transition: %w", err)
	}

	return transition, nil
}

func (r *TransitionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowTransition, error) {
	query := `
		SELECT ` + transitionColumns + `
		FROM workflow_transitions
		WHERE workflow_id = $1
		ORDER BY position, code
	`

	return r.queryTransitions(ctx, query, workflowID)
}

func (r *TransitionRepository) ListFromState(ctx context.Context, fromStateID string) ([]*models.WorkflowTransition, error) {
	query := `
		SELECT ` + transitionColumns + `
		FROM workflow_transitions
		WHERE from_state_id = $1 AND is_active
		ORDER BY position, code
	`

	return r.queryTransitions(ctx, query, fromStateID)
}

func (r *TransitionRepository) Update(ctx context.Context, transition *models.WorkflowTransition) error {
	conditionsJSON, preJSON, postJSON, err := marshalTransitionJSON(transition)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_transitions SET
			name = $2,
			requires_approval = $3,
			requires_comment = $4,
			conditions = $5,
			pre_actions = $6,
			post_actions = $7,
			position = $8,
			is_active = $9,
			updated_at = $10
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		transition.ID,
		transition.Name,
		transition.RequiresApproval,
		transition.RequiresComment,
		conditionsJSON,
		preJSON,
		postJSON,
		transition.Position,
		transition.IsActive,
		transition.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Update", "transition", transition.ID, translateError(err))
	}

	return requireRow(result, "Update", "transition", transition.ID, persistence.ErrTransitionNotFound)
}

func (r *TransitionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM workflow_transitions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete transition: %w", err)
	}

	return requireRow(result, "Delete", "transition", id, persistence.ErrTransitionNotFound)
}

func (r *TransitionRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM workflow_transitions WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow transitions: %w", err)
	}

	return nil
}

func (r *TransitionRepository) queryTransitions(ctx context.Context, query string, args ...any) ([]*models.WorkflowTransition, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	transitions := make([]*models.WorkflowTransition, 0)

	for rows.Next() {
		transition, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}

		transitions = append(transitions, transition)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}

	return transitions, nil
}

func marshalTransitionJSON(transition *models.WorkflowTransition) (any, any, any, error) {
	conditionsJSON, err := marshalJSONB(transition.Conditions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}

	preJSON, err := marshalJSONB(transition.PreActions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal pre actions: %w", err)
	}

	postJSON, err := marshalJSONB(transition.PostActions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal post actions: %w", err)
	}

	return conditionsJSON, preJSON, postJSON, nil
}

func scanTransition(row scanner) (*models.WorkflowTransition, error) {
	var (
		transition     models.WorkflowTransition
		conditionsJSON []byte
		preJSON        []byte
		postJSON       []byte
	)

	err := row.Scan(
		&transition.ID,
		&transition.WorkflowID,
		&transition.FromStateID,
		&transition.ToStateID,
		&transition.Code,
		&transition.Name,
		&transition.RequiresApproval,
		&transition.RequiresComment,
		&conditionsJSON,
		&preJSON,
		&postJSON,
		&transition.Position,
		&transition.IsActive,
		&transition.CreatedAt,
		&transition.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = unmarshalJSONB(conditionsJSON, &transition.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}

	err = unmarshalJSONB(preJSON, &transition.PreActions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal pre actions: %w", err)
	}

	err = unmarshalJSONB(postJSON, &transition.PostActions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal post actions: %w", err)
	}

	return &transition, nil
}
