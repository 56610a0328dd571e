package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

type approvalRepository struct {
	p *Persistence
}

func copyApproval(approval *models.Approval) *models.Approval {
	copied := *approval

	return &copied
}

func (r *approvalRepository) Create(_ context.Context, approval *models.Approval) error {
	r.p.write(func(s *store) {
		s.approvals[approval.ID] = copyApproval(approval)
	})

	return nil
}

func (r *approvalRepository) GetByID(_ context.Context, tenantID, id string) (*models.Approval, error) {
	var approval *models.Approval

	r.p.read(func(s *store) {
		existing, ok := s.approvals[id]
		if ok && existing.TenantID == tenantID {
			approval = copyApproval(existing)
		}
	})

	if approval == nil {
		return nil, persistence.NewStorageError("GetByID", "approval", id, persistence.ErrApprovalNotFound)
	}

	return approval, nil
}

func (r *approvalRepository) Update(_ context.Context, approval *models.Approval) error {
	var err error

	r.p.write(func(s *store) {
		existing, ok := s.approvals[approval.ID]
		if !ok || existing.TenantID != approval.TenantID {
			err = persistence.NewStorageError("Update", "approval", approval.ID, persistence.ErrApprovalNotFound)

			return
		}

		s.approvals[approval.ID] = copyApproval(approval)
	})

	return err
}

func (r *approvalRepository) ResolvePending(_ context.Context, approval *models.Approval) error {
	var err error

	r.p.write(func(s *store) {
		existing, ok := s.approvals[approval.ID]
		if !ok || existing.TenantID != approval.TenantID {
			err = persistence.NewStorageError("ResolvePending", "approval", approval.ID, persistence.ErrApprovalNotFound)

			return
		}

		if existing.Status != models.ApprovalStatusPending {
			err = persistence.NewStorageError("ResolvePending", "approval", approval.ID, persistence.ErrApprovalNotPending)

			return
		}

		s.approvals[approval.ID] = copyApproval(approval)
	})

	return err
}

func (r *approvalRepository) PendingForUser(_ context.Context, tenantID, userID string, roles []string) ([]*models.Approval, error) {
	var approvals []*models.Approval

	r.p.read(func(s *store) {
		for _, existing := range s.approvals {
			if existing.TenantID != tenantID || existing.Status != models.ApprovalStatusPending {
				continue
			}

			assignedToUser := existing.ApproverUserID != "" && existing.ApproverUserID == userID
			assignedToRole := existing.ApproverRole != "" && slices.Contains(roles, existing.ApproverRole)

			if assignedToUser || assignedToRole {
				approvals = append(approvals, copyApproval(existing))
			}
		}
	})

	sortPending(approvals)

	return approvals, nil
}

func (r *approvalRepository) PendingForEntity(_ context.Context, tenantID string, entity models.EntityRef) ([]*models.Approval, error) {
	var approvals []*models.Approval

	r.p.read(func(s *store) {
		for _, existing := range s.approvals {
			if existing.TenantID == tenantID &&
				existing.Status == models.ApprovalStatusPending &&
				existing.Entity == entity {
				approvals = append(approvals, copyApproval(existing))
			}
		}
	})

	sortPending(approvals)

	return approvals, nil
}

func (r *approvalRepository) Overdue(_ context.Context, now time.Time, limit int) ([]*models.Approval, error) {
	var approvals []*models.Approval

	r.p.read(func(s *store) {
		for _, existing := range s.approvals {
			if existing.Overdue(now) {
				approvals = append(approvals, copyApproval(existing))
			}
		}
	})

	sort.Slice(approvals, func(i, j int) bool {
		if !approvals[i].DueAt.Equal(*approvals[j].DueAt) {
			return approvals[i].DueAt.Before(*approvals[j].DueAt)
		}

		return approvals[i].ID < approvals[j].ID
	})

	if limit > 0 && len(approvals) > limit {
		approvals = approvals[:limit]
	}

	return approvals, nil
}

// sortPending orders approvals by priority weight descending, then due date
// ascending with undated approvals last, then id for stability.
func sortPending(approvals []*models.Approval) {
	sort.Slice(approvals, func(i, j int) bool {
		left, right := approvals[i], approvals[j]

		if left.Priority.Weight() != right.Priority.Weight() {
			return left.Priority.Weight() > right.Priority.Weight()
		}

		switch {
		case left.DueAt == nil && right.DueAt == nil:
			return left.ID < right.ID
		case left.DueAt == nil:
			return false
		case right.DueAt == nil:
			return true
		case !left.DueAt.Equal(*right.DueAt):
			return left.DueAt.Before(*right.DueAt)
		default:
			return left.ID < right.ID
		}
	})
}
