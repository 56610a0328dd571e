package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mfgworks/flowgate/pkg/conditions"
	"github.com/mfgworks/flowgate/pkg/eventbus"
	"github.com/mfgworks/flowgate/pkg/events"
	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/otelhelper"
	"github.com/mfgworks/flowgate/pkg/persistence"
	"github.com/mfgworks/flowgate/pkg/registry"
)

// Executor orchestrates transitions and approval resolution. Every mutation
// runs as one storage transaction: either all of its writes land or none do.
// The approval gate is the only suspension point: a transition requiring
// approval creates the approval and returns without moving the entity; the
// later approval resolution performs the actual state change through the
// same completion path.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	approvals   *Approvals
	history     *History
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewExecutor creates a new transition executor.
func NewExecutor(
	persistence persistence.Persistence,
	registry *registry.Registry,
	approvals *Approvals,
	history *History,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		persistence: persistence,
		registry:    registry,
		approvals:   approvals,
		history:     history,
		publisher:   publisher,
		logger:      logger,
		tracer:      otel.Tracer("flowgate.executor"),
	}
}

// StartWorkflowRequest enrolls an entity into a workflow.
type StartWorkflowRequest struct {
	TenantID     string           `validate:"required"`
	Entity       models.EntityRef `validate:"required"`
	WorkflowCode string           // empty selects the tenant's default workflow for the entity type
	ActorID      string
}

// ExecuteTransitionRequest moves an enrolled entity along one transition.
type ExecuteTransitionRequest struct {
	TenantID     string           `validate:"required"`
	Entity       models.EntityRef `validate:"required"`
	TransitionID string           `validate:"required"`
	ActorID      string           `validate:"required"`
	ActorRoles   []string
	EntityData   map[string]any
	Comment      string
}

// ProcessApprovalRequest resolves one pending approval.
type ProcessApprovalRequest struct {
	TenantID   string `validate:"required"`
	ApprovalID string `validate:"required"`
	ActorID    string `validate:"required"`
	ActorRoles []string
	Approved   bool
	Comment    string
}

// TransitionResult reports the outcome of ExecuteTransition or
// ProcessApproval. State is the transition's target state descriptor; when
// PendingApproval is set the entity is still in its source state and State
// describes where the entity will land once the approval is granted.
type TransitionResult struct {
	PendingApproval bool                  `json:"pending_approval"`
	Approval        *models.Approval      `json:"approval,omitempty"`
	State           *models.WorkflowState `json:"state,omitempty"`
	Version         int64                 `json:"version"`
	Message         string                `json:"message,omitempty"`
}

// EntityStatus is the read-only composite view for UIs.
type EntityStatus struct {
	Workflow             *models.Workflow             `json:"workflow"`
	State                *models.WorkflowState        `json:"state"`
	Version              int64                        `json:"version"`
	AvailableTransitions []*models.WorkflowTransition `json:"available_transitions"`
	PendingApprovals     []*models.Approval           `json:"pending_approvals"`
}

// StartWorkflow enrolls the entity at the workflow's initial state, creating
// its cursor and the first history row, then runs the initial state's entry
// actions.
func (e *Executor) StartWorkflow(ctx context.Context, req StartWorkflowRequest) (*TransitionResult, error) {
	const op = "Executor.StartWorkflow"

	if err := models.ValidateEntityType(req.Entity.Type); err != nil {
		return nil, NewServiceError(op, "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
	}

	var (
		result    *TransitionResult
		published []eventbus.Event
	)

	err := e.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		var (
			workflow *models.Workflow
			err      error
		)

		if req.WorkflowCode != "" {
			workflow, err = tx.Workflows().GetByCode(ctx, req.TenantID, req.WorkflowCode)
		} else {
			workflow, err = tx.Workflows().Default(ctx, req.TenantID, req.Entity.Type)
		}

		if err != nil {
			return err
		}

		if !workflow.IsActive {
			return NewServiceError(op, "WORKFLOW_INACTIVE", "Workflow is not active", ErrWorkflowInactive)
		}

		if workflow.EntityType != req.Entity.Type {
			return NewServiceError(op, "ENTITY_TYPE_MISMATCH",
				fmt.Sprintf("Workflow %s does not govern %s entities", workflow.Code, req.Entity.Type), ErrInvalidRequest)
		}

		initial, err := tx.States().Initial(ctx, workflow.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		cursor := &models.EntityCursor{
			TenantID:   req.TenantID,
			Entity:     req.Entity,
			WorkflowID: workflow.ID,
			StateID:    initial.ID,
			Version:    1,
			UpdatedAt:  now,
			UpdatedBy:  req.ActorID,
		}

		err = tx.Cursors().Upsert(ctx, cursor, 0)
		if err != nil {
			if persistence.IsCursorConflict(err) {
				return NewServiceError(op, "ALREADY_ENROLLED",
					"Entity is already enrolled in a workflow", ErrStaleEntityState)
			}

			return err
		}

		err = e.history.Record(ctx, tx, &models.HistoryEntry{
			TenantID:    req.TenantID,
			Entity:      req.Entity,
			WorkflowID:  workflow.ID,
			ToStateID:   initial.ID,
			EventType:   models.HistoryEventTransition,
			Description: fmt.Sprintf("Entered workflow %s at state %s", workflow.Code, initial.Code),
			PerformedBy: req.ActorID,
		})
		if err != nil {
			return err
		}

		actionCtx := models.ActionContext{
			TenantID:   req.TenantID,
			Entity:     req.Entity,
			ActorID:    req.ActorID,
			WorkflowID: workflow.ID,
			StateID:    initial.ID,
		}

		var notes []string

		err = e.dispatch(ctx, initial.EntryActions, actionCtx, &notes)
		if err != nil {
			return err
		}

		published = append(published, events.TransitionCompleted{
			BaseEvent:  events.NewBaseEvent(events.TransitionCompletedEvent, req.TenantID, req.Entity),
			WorkflowID: workflow.ID,
			ToStateID:  initial.ID,
			ActorID:    req.ActorID,
		})

		result = &TransitionResult{
			State:   initial,
			Version: cursor.Version,
			Message: withNotes("Workflow started", notes),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publishAll(ctx, req.Entity, published)

	return result, nil
}

// ExecuteTransition validates and executes one transition as a single unit
// of work. A transition gated by approval suspends instead of committing the
// state change.
func (e *Executor) ExecuteTransition(ctx context.Context, req ExecuteTransitionRequest) (*TransitionResult, error) {
	const op = "Executor.ExecuteTransition"

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "execute_transition",
		attribute.String(otelhelper.TenantIDKey, req.TenantID),
		attribute.String(otelhelper.EntityKey, req.Entity.String()),
		attribute.String(otelhelper.TransitionIDKey, req.TransitionID),
		attribute.String(otelhelper.ActorIDKey, req.ActorID),
	)
	defer span.End()

	if err := models.ValidateEntityType(req.Entity.Type); err != nil {
		return nil, NewServiceError(op, "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
	}

	var (
		result    *TransitionResult
		published []eventbus.Event
	)

	err := e.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		cursor, err := tx.Cursors().Get(ctx, req.TenantID, req.Entity)
		if err != nil {
			return err
		}

		transition, err := tx.Transitions().GetByID(ctx, req.TransitionID)
		if err != nil {
			return err
		}

		// The workflow lookup is tenant-scoped, so a transition id from
		// another tenant resolves to not-found here.
		workflow, err := tx.Workflows().GetByID(ctx, req.TenantID, transition.WorkflowID)
		if err != nil {
			return err
		}

		if !workflow.IsActive {
			return NewServiceError(op, "WORKFLOW_INACTIVE", "Workflow is not active", ErrWorkflowInactive)
		}

		if !transition.IsActive {
			return NewServiceError(op, "TRANSITION_INACTIVE", "Transition is not active", ErrInvalidRequest)
		}

		if cursor.WorkflowID != workflow.ID {
			return NewServiceError(op, "WORKFLOW_MISMATCH",
				"Entity is not governed by this transition's workflow", ErrInvalidRequest)
		}

		if transition.FromStateID != cursor.StateID {
			return NewServiceError(op, "NOT_AVAILABLE",
				"Transition is not available from the entity's current state", ErrTransitionDenied)
		}

		verdict := conditions.Evaluate(transition.Conditions, req.EntityData, req.ActorRoles)
		if !verdict.Allowed {
			return NewServiceError(op, "CONDITIONS_NOT_MET", verdict.Reason, ErrTransitionDenied)
		}

		if transition.RequiresComment && strings.TrimSpace(req.Comment) == "" {
			return NewServiceError(op, "COMMENT_REQUIRED",
				"Comments are required for this transition", ErrCommentRequired)
		}

		toState, err := tx.States().GetByID(ctx, transition.ToStateID)
		if err != nil {
			return err
		}

		actionCtx := models.ActionContext{
			TenantID:   req.TenantID,
			Entity:     req.Entity,
			ActorID:    req.ActorID,
			WorkflowID: workflow.ID,
			StateID:    transition.FromStateID,
		}

		var notes []string

		err = e.dispatch(ctx, transition.PreActions, actionCtx, &notes)
		if err != nil {
			return err
		}

		if transition.RequiresApproval || toState.RequiresApproval {
			approvalReq := ApprovalRequest{
				TenantID:     req.TenantID,
				Entity:       req.Entity,
				WorkflowID:   workflow.ID,
				StateID:      toState.ID,
				TransitionID: transition.ID,
				Type:         "transition",
				Title:        fmt.Sprintf("Approve %s", transition.Name),
				RequestedBy:  req.ActorID,
			}

			if params, ok := findCreateApprovalParams(transition, toState); ok {
				approvalReq.ApplyActionParams(params)
			}

			approval, approvalEvent, err := e.approvals.Request(ctx, tx, approvalReq)
			if err != nil {
				return err
			}

			err = e.history.Record(ctx, tx, &models.HistoryEntry{
				TenantID:     req.TenantID,
				Entity:       req.Entity,
				WorkflowID:   workflow.ID,
				FromStateID:  transition.FromStateID,
				ToStateID:    toState.ID,
				TransitionID: transition.ID,
				ApprovalID:   approval.ID,
				EventType:    models.HistoryEventTransitionPending,
				Description:  fmt.Sprintf("Transition %s is pending approval", transition.Code),
				Comment:      req.Comment,
				PerformedBy:  req.ActorID,
			})
			if err != nil {
				return err
			}

			published = append(published,
				events.TransitionPending{
					BaseEvent:    events.NewBaseEvent(events.TransitionPendingEvent, req.TenantID, req.Entity),
					WorkflowID:   workflow.ID,
					TransitionID: transition.ID,
					ApprovalID:   approval.ID,
					ActorID:      req.ActorID,
				},
				*approvalEvent,
			)

			result = &TransitionResult{
				PendingApproval: true,
				Approval:        approval,
				State:           toState,
				Version:         cursor.Version,
				Message:         withNotes("Transition is pending approval", notes),
			}

			return nil
		}

		version, err := e.completeTransition(ctx, tx, completion{
			workflow:   workflow,
			transition: transition,
			toState:    toState,
			cursor:     cursor,
			actorID:    req.ActorID,
			comment:    req.Comment,
		}, &notes, &published)
		if err != nil {
			return err
		}

		result = &TransitionResult{
			State:   toState,
			Version: version,
			Message: withNotes(fmt.Sprintf("Entity moved to state %s", toState.Code), notes),
		}

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.publishAll(ctx, req.Entity, published)

	return result, nil
}

// ProcessApproval resolves a pending approval. Granting it completes the
// suspended transition; rejecting it leaves the entity in its prior state.
// Resolution is at-most-once: a second call on the same approval fails with
// its resolved status.
func (e *Executor) ProcessApproval(ctx context.Context, req ProcessApprovalRequest) (*TransitionResult, error) {
	const op = "Executor.ProcessApproval"

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "process_approval",
		attribute.String(otelhelper.TenantIDKey, req.TenantID),
		attribute.String(otelhelper.ApprovalIDKey, req.ApprovalID),
		attribute.String(otelhelper.ActorIDKey, req.ActorID),
		attribute.Bool("flowgate.approval.approved", req.Approved),
	)
	defer span.End()

	var (
		result    *TransitionResult
		entity    models.EntityRef
		published []eventbus.Event
	)

	err := e.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		approval, err := tx.Approvals().GetByID(ctx, req.TenantID, req.ApprovalID)
		if err != nil {
			return err
		}

		entity = approval.Entity

		if approval.Status != models.ApprovalStatusPending {
			return NewServiceError(op, "APPROVAL_RESOLVED",
				fmt.Sprintf("Approval is already %s", approval.Status), ErrApprovalAlreadyResolved)
		}

		if !e.authorizedApprover(approval, req.ActorID, req.ActorRoles) {
			return NewServiceError(op, "NOT_AUTHORIZED",
				"You are not authorized to resolve this approval", ErrNotAuthorizedApprover)
		}

		now := time.Now().UTC()
		approval.ResolvedBy = req.ActorID
		approval.ResolutionComment = req.Comment
		approval.ResolvedAt = &now

		if req.Approved {
			approval.Status = models.ApprovalStatusApproved
		} else {
			approval.Status = models.ApprovalStatusRejected
		}

		err = tx.Approvals().ResolvePending(ctx, approval)
		if err != nil {
			if persistence.IsApprovalNotPending(err) {
				return e.alreadyResolvedError(ctx, op, req.TenantID, req.ApprovalID)
			}

			return err
		}

		eventType := models.HistoryEventApprovalGranted
		resolvedEventType := events.ApprovalGrantedEvent
		description := "Approval granted"

		if !req.Approved {
			eventType = models.HistoryEventApprovalRejected
			resolvedEventType = events.ApprovalRejectedEvent
			description = "Approval rejected"
		}

		err = e.history.Record(ctx, tx, &models.HistoryEntry{
			TenantID:    approval.TenantID,
			Entity:      approval.Entity,
			WorkflowID:  approval.WorkflowID,
			ToStateID:   approval.StateID,
			ApprovalID:  approval.ID,
			EventType:   eventType,
			Description: description,
			Comment:     req.Comment,
			PerformedBy: req.ActorID,
		})
		if err != nil {
			return err
		}

		published = append(published, events.ApprovalResolved{
			BaseEvent:  events.NewBaseEvent(resolvedEventType, approval.TenantID, approval.Entity),
			ApprovalID: approval.ID,
			ResolvedBy: req.ActorID,
			Comment:    req.Comment,
			Approved:   req.Approved,
		})

		if !req.Approved {
			result = &TransitionResult{
				Approval: approval,
				Message:  "Approval rejected",
			}

			return nil
		}

		if approval.StateID == "" {
			// Standalone approval with no target state: nothing to resume.
			result = &TransitionResult{
				Approval: approval,
				Message:  "Approval granted",
			}

			return nil
		}

		return e.resumeTransition(ctx, tx, approval, req.ActorID, req.Comment, &result, &published)
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.publishAll(ctx, entity, published)

	return result, nil
}

// resumeTransition performs the state change a granted approval was gating.
func (e *Executor) resumeTransition(
	ctx context.Context,
	tx persistence.Persistence,
	approval *models.Approval,
	actorID, comment string,
	result **TransitionResult,
	published *[]eventbus.Event,
) error {
	workflow, err := tx.Workflows().GetByID(ctx, approval.TenantID, approval.WorkflowID)
	if err != nil {
		return err
	}

	toState, err := tx.States().GetByID(ctx, approval.StateID)
	if err != nil {
		return err
	}

	cursor, err := tx.Cursors().Get(ctx, approval.TenantID, approval.Entity)
	if err != nil {
		return err
	}

	var transition *models.WorkflowTransition

	if transitionID, ok := approval.Metadata["transition_id"].(string); ok && transitionID != "" {
		transition, err = tx.Transitions().GetByID(ctx, transitionID)
		if err != nil && !persistence.IsTransitionNotFound(err) {
			return err
		}
	}

	var notes []string

	version, err := e.completeTransition(ctx, tx, completion{
		workflow:   workflow,
		transition: transition,
		toState:    toState,
		cursor:     cursor,
		actorID:    actorID,
		comment:    comment,
	}, &notes, published)
	if err != nil {
		return err
	}

	*result = &TransitionResult{
		Approval: approval,
		State:    toState,
		Version:  version,
		Message:  withNotes("Approval granted", notes),
	}

	return nil
}

// completion bundles the inputs of completeTransition.
type completion struct {
	workflow   *models.Workflow
	transition *models.WorkflowTransition // nil for standalone approvals
	toState    *models.WorkflowState
	cursor     *models.EntityCursor
	actorID    string
	comment    string
}

// completeTransition is the single commit path shared by direct transitions
// and granted approvals: post-actions, entry actions, cursor move with
// optimistic version check, and the transition history row.
func (e *Executor) completeTransition(
	ctx context.Context,
	tx persistence.Persistence,
	c completion,
	notes *[]string,
	published *[]eventbus.Event,
) (int64, error) {
	actionCtx := models.ActionContext{
		TenantID:   c.cursor.TenantID,
		Entity:     c.cursor.Entity,
		ActorID:    c.actorID,
		WorkflowID: c.workflow.ID,
		StateID:    c.toState.ID,
	}

	if c.transition != nil {
		err := e.dispatch(ctx, c.transition.PostActions, actionCtx, notes)
		if err != nil {
			return 0, err
		}
	}

	err := e.dispatch(ctx, c.toState.EntryActions, actionCtx, notes)
	if err != nil {
		return 0, err
	}

	fromStateID := c.cursor.StateID
	updated := &models.EntityCursor{
		TenantID:   c.cursor.TenantID,
		Entity:     c.cursor.Entity,
		WorkflowID: c.workflow.ID,
		StateID:    c.toState.ID,
		Version:    c.cursor.Version + 1,
		UpdatedAt:  time.Now().UTC(),
		UpdatedBy:  c.actorID,
	}

	err = tx.Cursors().Upsert(ctx, updated, c.cursor.Version)
	if err != nil {
		if persistence.IsCursorConflict(err) {
			return 0, NewServiceError("Executor.completeTransition", "STALE_STATE",
				"Entity state changed since it was read, please retry", ErrStaleEntityState)
		}

		return 0, err
	}

	entry := &models.HistoryEntry{
		TenantID:    c.cursor.TenantID,
		Entity:      c.cursor.Entity,
		WorkflowID:  c.workflow.ID,
		FromStateID: fromStateID,
		ToStateID:   c.toState.ID,
		EventType:   models.HistoryEventTransition,
		Description: fmt.Sprintf("Entity moved to state %s", c.toState.Code),
		Comment:     c.comment,
		PerformedBy: c.actorID,
	}
	if c.transition != nil {
		entry.TransitionID = c.transition.ID
		entry.Description = fmt.Sprintf("Transition %s: moved to state %s", c.transition.Code, c.toState.Code)
	}

	err = e.history.Record(ctx, tx, entry)
	if err != nil {
		return 0, err
	}

	completedEvent := events.TransitionCompleted{
		BaseEvent:   events.NewBaseEvent(events.TransitionCompletedEvent, c.cursor.TenantID, c.cursor.Entity),
		WorkflowID:  c.workflow.ID,
		FromStateID: fromStateID,
		ToStateID:   c.toState.ID,
		ActorID:     c.actorID,
	}
	if c.transition != nil {
		completedEvent.TransitionID = c.transition.ID
	}

	*published = append(*published, completedEvent)

	return updated.Version, nil
}

// ValidateTransition runs the condition evaluator without mutating anything.
func (e *Executor) ValidateTransition(ctx context.Context, tenantID, transitionID string, entityData map[string]any, actorRoles []string) (conditions.Result, error) {
	transition, err := e.persistence.Transitions().GetByID(ctx, transitionID)
	if err != nil {
		return conditions.Result{}, err
	}

	_, err = e.persistence.Workflows().GetByID(ctx, tenantID, transition.WorkflowID)
	if err != nil {
		return conditions.Result{}, err
	}

	if !transition.IsActive {
		return conditions.Result{Allowed: false, Reason: "Transition is not active"}, nil
	}

	return conditions.Evaluate(transition.Conditions, entityData, actorRoles), nil
}

// AvailableTransitions lists the active transitions leaving a state. When
// entity data or roles are supplied, transitions failing their conditions
// are filtered out.
func (e *Executor) AvailableTransitions(ctx context.Context, tenantID, fromStateID string, entityData map[string]any, actorRoles []string) ([]*models.WorkflowTransition, error) {
	state, err := e.persistence.States().GetByID(ctx, fromStateID)
	if err != nil {
		return nil, err
	}

	_, err = e.persistence.Workflows().GetByID(ctx, tenantID, state.WorkflowID)
	if err != nil {
		return nil, err
	}

	transitions, err := e.persistence.Transitions().ListFromState(ctx, fromStateID)
	if err != nil {
		return nil, err
	}

	if entityData == nil && actorRoles == nil {
		return transitions, nil
	}

	available := make([]*models.WorkflowTransition, 0, len(transitions))

	for _, transition := range transitions {
		if conditions.Evaluate(transition.Conditions, entityData, actorRoles).Allowed {
			available = append(available, transition)
		}
	}

	return available, nil
}

// Status returns the composite read-only view of an entity's workflow
// position: current state, filtered available transitions, and pending
// approvals.
func (e *Executor) Status(ctx context.Context, tenantID string, entity models.EntityRef, entityData map[string]any, actorRoles []string) (*EntityStatus, error) {
	if err := models.ValidateEntityType(entity.Type); err != nil {
		return nil, NewServiceError("Executor.Status", "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
	}

	cursor, err := e.persistence.Cursors().Get(ctx, tenantID, entity)
	if err != nil {
		return nil, err
	}

	workflow, err := e.persistence.Workflows().GetByID(ctx, tenantID, cursor.WorkflowID)
	if err != nil {
		return nil, err
	}

	state, err := e.persistence.States().GetByID(ctx, cursor.StateID)
	if err != nil {
		return nil, err
	}

	transitions, err := e.AvailableTransitions(ctx, tenantID, cursor.StateID, entityData, actorRoles)
	if err != nil {
		return nil, err
	}

	approvals, err := e.persistence.Approvals().PendingForEntity(ctx, tenantID, entity)
	if err != nil {
		return nil, err
	}

	return &EntityStatus{
		Workflow:             workflow,
		State:                state,
		Version:              cursor.Version,
		AvailableTransitions: transitions,
		PendingApprovals:     approvals,
	}, nil
}

// dispatch runs action descriptors and folds fire-and-forget failures into
// the response notes instead of aborting.
func (e *Executor) dispatch(ctx context.Context, descriptors []models.ActionDescriptor, actionCtx models.ActionContext, notes *[]string) error {
	if len(descriptors) == 0 || e.registry == nil {
		return nil
	}

	result, err := e.registry.Dispatch(ctx, descriptors, actionCtx)
	if result != nil {
		*notes = append(*notes, result.Failures...)
	}

	if err != nil {
		return NewServiceError("Executor.dispatch", "ACTION_FAILED", err.Error(), errors.Join(ErrActionFailed, err))
	}

	return nil
}

// authorizedApprover implements the engine-owned approver check: the actor
// must be the named approver user, or hold the named approver role.
func (e *Executor) authorizedApprover(approval *models.Approval, actorID string, actorRoles []string) bool {
	if approval.ApproverUserID != "" && approval.ApproverUserID == actorID {
		return true
	}

	if approval.ApproverRole != "" {
		for _, role := range actorRoles {
			if role == approval.ApproverRole {
				return true
			}
		}
	}

	return false
}

// alreadyResolvedError re-reads the approval so the error names the status
// that won the race.
func (e *Executor) alreadyResolvedError(ctx context.Context, op, tenantID, approvalID string) error {
	status := "resolved"

	approval, err := e.persistence.Approvals().GetByID(ctx, tenantID, approvalID)
	if err == nil {
		status = string(approval.Status)
	}

	return NewServiceError(op, "APPROVAL_RESOLVED",
		fmt.Sprintf("Approval is already %s", status), ErrApprovalAlreadyResolved)
}

// findCreateApprovalParams scans the transition's action lists and the
// target state's entry actions for a create_approval descriptor carrying
// approver configuration.
func findCreateApprovalParams(transition *models.WorkflowTransition, toState *models.WorkflowState) (map[string]any, bool) {
	lists := [][]models.ActionDescriptor{
		transition.PreActions,
		transition.PostActions,
		toState.EntryActions,
	}

	for _, descriptors := range lists {
		for _, descriptor := range descriptors {
			if descriptor.Action == models.ActionCreateApproval {
				return descriptor.Params, true
			}
		}
	}

	return nil, false
}

func withNotes(message string, notes []string) string {
	if len(notes) == 0 {
		return message
	}

	return message + " (action failures: " + strings.Join(notes, "; ") + ")"
}

func (e *Executor) publishAll(ctx context.Context, entity models.EntityRef, published []eventbus.Event) {
	if e.publisher == nil {
		return
	}

	for _, event := range published {
		err := e.publisher.Publish(ctx, entity.String(), event)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
		}
	}
}
