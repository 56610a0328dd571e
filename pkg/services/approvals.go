package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mfgworks/flowgate/pkg/eventbus"
	"github.com/mfgworks/flowgate/pkg/events"
	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

// Approvals creates and serves approval requests. Resolution lives on the
// Executor because granting an approval completes a suspended transition.
type Approvals struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	history     *History
	logger      *slog.Logger
}

// NewApprovals creates a new approval service.
func NewApprovals(persistence persistence.Persistence, publisher eventbus.EventPublisher, history *History, logger *slog.Logger) *Approvals {
	return &Approvals{
		persistence: persistence,
		publisher:   publisher,
		history:     history,
		logger:      logger,
	}
}

// ApprovalRequest describes one approval to create.
type ApprovalRequest struct {
	TenantID     string           `validate:"required"`
	Entity       models.EntityRef `validate:"required"`
	WorkflowID   string
	StateID      string // target state entered when granted
	TransitionID string
	Type         string
	Title        string
	Description  string

	ApproverUserID string
	ApproverRole   string

	Priority    models.ApprovalPriority
	DueAt       *time.Time
	RequestedBy string
	Metadata    map[string]any
}

// ApplyActionParams fills approver, priority and presentation fields from a
// create_approval action descriptor's params. Explicitly set fields win.
func (r *ApprovalRequest) ApplyActionParams(params map[string]any) {
	if r.ApproverUserID == "" {
		if v, ok := params["approver_user_id"].(string); ok {
			r.ApproverUserID = v
		}
	}

	if r.ApproverRole == "" {
		if v, ok := params["approver_role"].(string); ok {
			r.ApproverRole = v
		}
	}

	if r.Priority == "" {
		if v, ok := params["priority"].(string); ok {
			r.Priority = models.ApprovalPriority(v)
		}
	}

	if r.Title == "" {
		if v, ok := params["title"].(string); ok {
			r.Title = v
		}
	}

	if r.Description == "" {
		if v, ok := params["description"].(string); ok {
			r.Description = v
		}
	}

	if r.Type == "" {
		if v, ok := params["type"].(string); ok {
			r.Type = v
		}
	}

	if r.DueAt == nil {
		if hours, ok := params["due_hours"].(float64); ok && hours > 0 {
			due := time.Now().UTC().Add(time.Duration(hours) * time.Hour)
			r.DueAt = &due
		}
	}
}

// Request creates a PENDING approval plus its approval_requested history row
// inside the supplied persistence scope (typically an open transaction). The
// returned event must be published by the caller after commit.
func (s *Approvals) Request(ctx context.Context, store persistence.Persistence, req ApprovalRequest) (*models.Approval, *events.ApprovalRequested, error) {
	const op = "Approvals.Request"

	if err := models.ValidateEntityType(req.Entity.Type); err != nil {
		return nil, nil, NewServiceError(op, "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
	}

	if req.ApproverUserID == "" && req.ApproverRole == "" {
		return nil, nil, NewServiceError(op, "APPROVER_REQUIRED",
			"An approver user or role is required", ErrApproverRequired)
	}

	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	if !req.Priority.Valid() {
		return nil, nil, NewServiceError(op, "INVALID_PRIORITY",
			fmt.Sprintf("Unknown approval priority '%s'", req.Priority), ErrInvalidRequest)
	}

	if req.Title == "" {
		req.Title = "Approval required"
	}

	if req.DueAt == nil {
		due := time.Now().UTC().Add(models.DefaultApprovalDueWindow)
		req.DueAt = &due
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, nil, err
	}

	metadata := req.Metadata
	if req.TransitionID != "" {
		if metadata == nil {
			metadata = make(map[string]any)
		}

		metadata["transition_id"] = req.TransitionID
	}

	approval := &models.Approval{
		ID:             id.String(),
		TenantID:       req.TenantID,
		Entity:         req.Entity,
		WorkflowID:     req.WorkflowID,
		StateID:        req.StateID,
		Type:           req.Type,
		Title:          req.Title,
		Description:    req.Description,
		ApproverUserID: req.ApproverUserID,
		ApproverRole:   req.ApproverRole,
		Status:         models.ApprovalStatusPending,
		Priority:       req.Priority,
		RequestedBy:    req.RequestedBy,
		RequestedAt:    time.Now().UTC(),
		DueAt:          req.DueAt,
		Metadata:       metadata,
	}

	err = store.Approvals().Create(ctx, approval)
	if err != nil {
		return nil, nil, err
	}

	err = s.history.Record(ctx, store, &models.HistoryEntry{
		TenantID:    approval.TenantID,
		Entity:      approval.Entity,
		WorkflowID:  approval.WorkflowID,
		ToStateID:   approval.StateID,
		ApprovalID:  approval.ID,
		EventType:   models.HistoryEventApprovalRequested,
		Description: "Approval requested: " + approval.Title,
		PerformedBy: approval.RequestedBy,
	})
	if err != nil {
		return nil, nil, err
	}

	event := &events.ApprovalRequested{
		BaseEvent:      events.NewBaseEvent(events.ApprovalRequestedEvent, approval.TenantID, approval.Entity),
		ApprovalID:     approval.ID,
		Title:          approval.Title,
		ApproverUserID: approval.ApproverUserID,
		ApproverRole:   approval.ApproverRole,
		Priority:       approval.Priority,
		DueAt:          approval.DueAt,
	}

	return approval, event, nil
}

// RequestStandalone creates an approval outside any transition, in its own
// transaction, and publishes the approval.requested event.
func (s *Approvals) RequestStandalone(ctx context.Context, req ApprovalRequest) (*models.Approval, error) {
	var (
		approval *models.Approval
		event    *events.ApprovalRequested
	)

	err := s.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		var err error
		approval, event, err = s.Request(ctx, tx, req)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, approval.Entity, event)

	return approval, nil
}

// Get returns one approval by id.
func (s *Approvals) Get(ctx context.Context, tenantID, id string) (*models.Approval, error) {
	return s.persistence.Approvals().GetByID(ctx, tenantID, id)
}

// Pending returns the user's approval inbox: approvals assigned to them
// directly or through one of their roles, most urgent first.
func (s *Approvals) Pending(ctx context.Context, tenantID, userID string, roles []string) ([]*models.Approval, error) {
	return s.persistence.Approvals().PendingForUser(ctx, tenantID, userID, roles)
}

// PendingForEntity returns the approvals currently gating an entity.
func (s *Approvals) PendingForEntity(ctx context.Context, tenantID string, entity models.EntityRef) ([]*models.Approval, error) {
	if err := models.ValidateEntityType(entity.Type); err != nil {
		return nil, NewServiceError("Approvals.PendingForEntity", "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
	}

	return s.persistence.Approvals().PendingForEntity(ctx, tenantID, entity)
}

// Escalate marks an overdue PENDING approval ESCALATED, records the history
// event and publishes approval.escalated. Approvals resolved in the meantime
// are left alone.
func (s *Approvals) Escalate(ctx context.Context, tenantID, id string) (*models.Approval, error) {
	const op = "Approvals.Escalate"

	var escalated *models.Approval

	err := s.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		approval, err := tx.Approvals().GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}

		if approval.Status != models.ApprovalStatusPending {
			return NewServiceError(op, "APPROVAL_RESOLVED",
				fmt.Sprintf("Approval is already %s", approval.Status), ErrApprovalAlreadyResolved)
		}

		now := time.Now().UTC()
		approval.Status = models.ApprovalStatusEscalated
		approval.ResolvedAt = &now

		err = tx.Approvals().ResolvePending(ctx, approval)
		if err != nil {
			return err
		}

		err = s.history.Record(ctx, tx, &models.HistoryEntry{
			TenantID:    approval.TenantID,
			Entity:      approval.Entity,
			WorkflowID:  approval.WorkflowID,
			ApprovalID:  approval.ID,
			EventType:   models.HistoryEventApprovalEscalated,
			Description: "Approval escalated: past due date",
		})
		if err != nil {
			return err
		}

		escalated = approval

		return nil
	})
	if err != nil {
		return nil, err
	}

	var due time.Time
	if escalated.DueAt != nil {
		due = *escalated.DueAt
	}

	s.publish(ctx, escalated.Entity, &events.ApprovalEscalated{
		BaseEvent:    events.NewBaseEvent(events.ApprovalEscalatedEvent, escalated.TenantID, escalated.Entity),
		ApprovalID:   escalated.ID,
		ApproverRole: escalated.ApproverRole,
		DueAt:        due,
	})

	return escalated, nil
}

// publish sends an event after a committed write. Publish failures are
// logged, not returned: the state change already happened.
func (s *Approvals) publish(ctx context.Context, entity models.EntityRef, event eventbus.Event) {
	if s.publisher == nil || event == nil {
		return
	}

	err := s.publisher.Publish(ctx, entity.String(), event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
