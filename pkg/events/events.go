// Package events defines the lifecycle events the engine publishes for
// downstream consumers (notification senders, integrations, audit mirrors).
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgworks/flowgate/pkg/models"
)

type EventType string

const Topic = "flowgate.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	TransitionCompletedEvent EventType = "workflow.transition.completed"
	TransitionPendingEvent   EventType = "workflow.transition.pending_approval"

	ApprovalRequestedEvent EventType = "approval.requested"
	ApprovalGrantedEvent   EventType = "approval.granted"
	ApprovalRejectedEvent  EventType = "approval.rejected"
	ApprovalEscalatedEvent EventType = "approval.escalated"

	NotificationRequestedEvent EventType = "notification.requested"
	EntityAssignedEvent        EventType = "entity.assigned"
)

type BaseEvent struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	TenantID  string           `json:"tenant_id"`
	Entity    models.EntityRef `json:"entity"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, tenantID string, entity models.EntityRef) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		Entity:    entity,
	}
}

type TransitionCompleted struct {
	BaseEvent

	WorkflowID   string `json:"workflow_id"`
	TransitionID string `json:"transition_id"`
	FromStateID  string `json:"from_state_id"`
	ToStateID    string `json:"to_state_id"`
	ActorID      string `json:"actor_id"`
}

func (e TransitionCompleted) GetType() EventType {
	return TransitionCompletedEvent
}

type TransitionPending struct {
	BaseEvent

	WorkflowID   string `json:"workflow_id"`
	TransitionID string `json:"transition_id"`
	ApprovalID   string `json:"approval_id"`
	ActorID      string `json:"actor_id"`
}

func (e TransitionPending) GetType() EventType {
	return TransitionPendingEvent
}

type ApprovalRequested struct {
	BaseEvent

	ApprovalID     string                  `json:"approval_id"`
	Title          string                  `json:"title"`
	ApproverUserID string                  `json:"approver_user_id,omitempty"`
	ApproverRole   string                  `json:"approver_role,omitempty"`
	Priority       models.ApprovalPriority `json:"priority"`
	DueAt          *time.Time              `json:"due_at,omitempty"`
}

func (e ApprovalRequested) GetType() EventType {
	return ApprovalRequestedEvent
}

type ApprovalResolved struct {
	BaseEvent

	ApprovalID string `json:"approval_id"`
	ResolvedBy string `json:"resolved_by"`
	Comment    string `json:"comment,omitempty"`
	Approved   bool   `json:"approved"`
}

func (e ApprovalResolved) GetType() EventType {
	if e.Approved {
		return ApprovalGrantedEvent
	}

	return ApprovalRejectedEvent
}

type ApprovalEscalated struct {
	BaseEvent

	ApprovalID   string    `json:"approval_id"`
	ApproverRole string    `json:"approver_role,omitempty"`
	DueAt        time.Time `json:"due_at"`
}

func (e ApprovalEscalated) GetType() EventType {
	return ApprovalEscalatedEvent
}

type NotificationRequested struct {
	BaseEvent

	Channel    string         `json:"channel"`
	Recipients []string       `json:"recipients,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Message    string         `json:"message"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func (e NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}

type EntityAssigned struct {
	BaseEvent

	AssigneeID   string `json:"assignee_id,omitempty"`
	AssigneeRole string `json:"assignee_role,omitempty"`
	AssignedBy   string `json:"assigned_by"`
}

func (e EntityAssigned) GetType() EventType {
	return EntityAssignedEvent
}
