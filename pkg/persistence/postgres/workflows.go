package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

const workflowColumns = `
		id
	  , tenant_id
	  , name
	  , code
	  , entity_type
	  , is_default
	  , is_active
	  , is_system
	  , config
	  , created_at
	  , updated_at
	  , deleted_at
`

// WorkflowRepository handles workflow definition database operations.
type WorkflowRepository struct {
	q      querier
	logger *slog.Logger
}

func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	configJSON, err := marshalJSONB(workflow.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow config: %w", err)
	}

	query := `
		INSERT INTO workflows (id, tenant_id, name, code, entity_type,
			is_default, is_active, is_system, config, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.q.ExecContext(ctx, query,
		workflow.ID,
		workflow.TenantID,
		workflow.Name,
		workflow.Code,
		workflow.EntityType,
		workflow.IsDefault,
		workflow.IsActive,
		workflow.IsSystem,
		configJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
		workflow.DeletedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Create", "workflow", workflow.ID, translateError(err))
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	workflow, err := scanWorkflow(r.q.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStorageError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) GetByCode(ctx context.Context, tenantID, code string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1 AND code = $2 AND deleted_at IS NULL
	`

	workflow, err := scanWorkflow(r.q.QueryRowContext(ctx, query, tenantID, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStorageError("GetByCode", "workflow", code, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, tenantID string, entityType models.EntityType) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1 AND deleted_at IS NULL
	`
	args := []any{tenantID}

	if entityType != "" {
		query += " AND entity_type = $2"
		args = append(args, entityType)
	}

	query += " ORDER BY created_at, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) Default(ctx context.Context, tenantID string, entityType models.EntityType) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1 AND entity_type = $2 AND is_default AND deleted_at IS NULL
		LIMIT 1
	`

	workflow, err := scanWorkflow(r.q.QueryRowContext(ctx, query, tenantID, entityType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStorageError("Default", "workflow", string(entityType), persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) Update(ctx context.Context, workflow *models.Workflow) error {
	configJSON, err := marshalJSONB(workflow.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow config: %w", err)
	}

	query := `
		UPDATE workflows SET
			name = $3,
			code = $4,
			is_default = $5,
			is_active = $6,
			is_system = $7,
			config = $8,
			updated_at = $9
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	result, err := r.q.ExecContext(ctx, query,
		workflow.ID,
		workflow.TenantID,
		workflow.Name,
		workflow.Code,
		workflow.IsDefault,
		workflow.IsActive,
		workflow.IsSystem,
		configJSON,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Update", "workflow", workflow.ID, translateError(err))
	}

	return requireRow(result, "Update", "workflow", workflow.ID, persistence.ErrWorkflowNotFound)
}

func (r *WorkflowRepository) ClearDefault(ctx context.Context, tenantID string, entityType models.EntityType, exceptID string) error {
	query := `
		UPDATE workflows SET is_default = FALSE
		WHERE tenant_id = $1 AND entity_type = $2 AND id <> $3 AND deleted_at IS NULL
	`

	_, err := r.q.ExecContext(ctx, query, tenantID, entityType, exceptID)
	if err != nil {
		return fmt.Errorf("failed to clear default workflows: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, tenantID, id string) error {
	query := `
		UPDATE workflows SET deleted_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return requireRow(result, "Delete", "workflow", id, persistence.ErrWorkflowNotFound)
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow   models.Workflow
		configJSON []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.TenantID,
		&workflow.Name,
		&workflow.Code,
		&workflow.EntityType,
		&workflow.IsDefault,
		&workflow.IsActive,
		&workflow.IsSystem,
		&configJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&workflow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	err = unmarshalJSONB(configJSON, &workflow.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow config: %w", err)
	}

	return &workflow, nil
}

// marshalJSONB serializes a value for a JSONB column, writing NULL for empty
// values.
func marshalJSONB(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(v) == 0 {
			return nil, nil
		}
	case []models.ActionDescriptor:
		if len(v) == 0 {
			return nil, nil
		}
	case *models.TransitionConditions:
		if v == nil {
			return nil, nil
		}
	}

	return json.Marshal(value)
}

func unmarshalJSONB(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, target)
}

func requireRow(result sql.Result, op, kind, key string, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStorageError(op, kind, key, notFound)
	}

	return nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
