package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

const approvalColumns = `
		id
	  , tenant_id
	  , entity_type
	  , entity_id
	  , workflow_id
	  , state_id
	  , type
	  , title
	  , description
	  , approver_user_id
	  , approver_role
	  , status
	  , priority
	  , requested_by
	  , requested_at
	  , due_at
	  , resolved_by
	  , resolution_comment
	  , resolved_at
	  , metadata
`

// priorityWeight ranks approvals for inbox ordering; it mirrors
// ApprovalPriority.Weight.
const priorityWeight = `
	CASE priority
		WHEN 'CRITICAL' THEN 4
		WHEN 'HIGH' THEN 3
		WHEN 'MEDIUM' THEN 2
		WHEN 'LOW' THEN 1
		ELSE 0
	END
`

// ApprovalRepository handles approval database operations.
type ApprovalRepository struct {
	q      querier
	logger *slog.Logger
}

func (r *ApprovalRepository) Create(ctx context.Context, approval *models.Approval) error {
	metadataJSON, err := marshalJSONB(approval.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal approval metadata: %w", err)
	}

	query := `
		INSERT INTO approvals (id, tenant_id, entity_type, entity_id, workflow_id,
			state_id, type, title, description, approver_user_id, approver_role,
			status, priority, requested_by, requested_at, due_at, resolved_by,
			resolution_comment, resolved_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = r.q.ExecContext(ctx, query,
		approval.ID,
		approval.TenantID,
		approval.Entity.Type,
		approval.Entity.ID,
		nullableString(approval.WorkflowID),
		nullableString(approval.StateID),
		nullableString(approval.Type),
		approval.Title,
		nullableString(approval.Description),
		nullableString(approval.ApproverUserID),
		nullableString(approval.ApproverRole),
		approval.Status,
		approval.Priority,
		nullableString(approval.RequestedBy),
		approval.RequestedAt,
		approval.DueAt,
		nullableString(approval.ResolvedBy),
		nullableString(approval.ResolutionComment),
		approval.ResolvedAt,
		metadataJSON,
	)
	if err != nil {
		return persistence.NewStorageError("Create", "approval", approval.ID, translateError(err))
	}

	return nil
}

func (r *ApprovalRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE id = $1 AND tenant_id = $2
	`

	approval, err := scanApproval(r.q.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStorageError("GetByID", "approval", id, persistence.ErrApprovalNotFound)
		}

		return nil, fmt.Errorf("failed to scan approval: %w", err)
	}

	return approval, nil
}

func (r *ApprovalRepository) Update(ctx context.Context, approval *models.Approval) error {
	metadataJSON, err := marshalJSONB(approval.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal approval metadata: %w", err)
	}

	query := `
		UPDATE approvals SET
			title = $3,
			description = $4,
			approver_user_id = $5,
			approver_role = $6,
			status = $7,
			priority = $8,
			due_at = $9,
			resolved_by = $10,
			resolution_comment = $11,
			resolved_at = $12,
			metadata = $13
		WHERE id = $1 AND tenant_id = $2
	`

	result, err := r.q.ExecContext(ctx, query,
		approval.ID,
		approval.TenantID,
		approval.Title,
		nullableString(approval.Description),
		nullableString(approval.ApproverUserID),
		nullableString(approval.ApproverRole),
		approval.Status,
		approval.Priority,
		approval.DueAt,
		nullableString(approval.ResolvedBy),
		nullableString(approval.ResolutionComment),
		approval.ResolvedAt,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}

	return requireRow(result, "Update", "approval", approval.ID, persistence.ErrApprovalNotFound)
}

// ResolvePending writes the resolution guarded by the stored status, so two
// racing resolutions cannot both land.
func (r *ApprovalRepository) ResolvePending(ctx context.Context, approval *models.Approval) error {
	query := `
		UPDATE approvals SET
			status = $3,
			resolved_by = $4,
			resolution_comment = $5,
			resolved_at = $6
		WHERE id = $1 AND tenant_id = $2 AND status = 'PENDING'
	`

	result, err := r.q.ExecContext(ctx, query,
		approval.ID,
		approval.TenantID,
		approval.Status,
		nullableString(approval.ResolvedBy),
		nullableString(approval.ResolutionComment),
		approval.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve approval: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		_, err := r.GetByID(ctx, approval.TenantID, approval.ID)
		if err != nil {
			return err
		}

		return persistence.NewStorageError("ResolvePending", "approval", approval.ID, persistence.ErrApprovalNotPending)
	}

	return nil
}

func (r *ApprovalRepository) PendingForUser(ctx context.Context, tenantID, userID string, roles []string) ([]*models.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE tenant_id = $1 AND status = 'PENDING'
		  AND (approver_user_id = $2 OR approver_role = ANY($3))
		ORDER BY ` + priorityWeight + ` DESC, due_at ASC NULLS LAST, id
	`

	return r.queryApprovals(ctx, query, tenantID, userID, pq.Array(roles))
}

func (r *ApprovalRepository) PendingForEntity(ctx context.Context, tenantID string, entity models.EntityRef) ([]*models.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3 AND status = 'PENDING'
		ORDER BY ` + priorityWeight + ` DESC, due_at ASC NULLS LAST, id
	`

	return r.queryApprovals(ctx, query, tenantID, entity.Type, entity.ID)
}

func (r *ApprovalRepository) Overdue(ctx context.Context, now time.Time, limit int) ([]*models.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE status = 'PENDING' AND due_at IS NOT NULL AND due_at < $1
		ORDER BY due_at, id
		LIMIT $2
	`

	return r.queryApprovals(ctx, query, now, limit)
}

func (r *ApprovalRepository) queryApprovals(ctx context.Context, query string, args ...any) ([]*models.Approval, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	approvals := make([]*models.Approval, 0)

	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}

		approvals = append(approvals, approval)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating approvals: %w", err)
	}

	return approvals, nil
}

func scanApproval(row scanner) (*models.Approval, error) {
	var (
		approval models.Approval

		workflowID, stateID, approvalType, description sql.NullString
		approverUserID, approverRole, requestedBy      sql.NullString
		resolvedBy, resolutionComment                  sql.NullString
		metadataJSON                                   []byte
	)

	err := row.Scan(
		&approval.ID,
		&approval.TenantID,
		&approval.Entity.Type,
		&approval.Entity.ID,
		&workflowID,
		&stateID,
		&approvalType,
		&approval.Title,
		&description,
		&approverUserID,
		&approverRole,
		&approval.Status,
		&approval.Priority,
		&requestedBy,
		&approval.RequestedAt,
		&approval.DueAt,
		&resolvedBy,
		&resolutionComment,
		&approval.ResolvedAt,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}

	approval.WorkflowID = workflowID.String
	approval.StateID = stateID.String
	approval.Type = approvalType.String
	approval.Description = description.String
	approval.ApproverUserID = approverUserID.String
	approval.ApproverRole = approverRole.String
	approval.RequestedBy = requestedBy.String
	approval.ResolvedBy = resolvedBy.String
	approval.ResolutionComment = resolutionComment.String

	err = unmarshalJSONB(metadataJSON, &approval.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval metadata: %w", err)
	}

	return &approval, nil
}
