package models

import "time"

// HistoryEventType tags a workflow history entry.
type HistoryEventType string

const (
	HistoryEventTransition        HistoryEventType = "transition"
	HistoryEventTransitionPending HistoryEventType = "transition_pending_approval"
	HistoryEventApprovalRequested HistoryEventType = "approval_requested"
	HistoryEventApprovalGranted   HistoryEventType = "approval_granted"
	HistoryEventApprovalRejected  HistoryEventType = "approval_rejected"
	HistoryEventApprovalEscalated HistoryEventType = "approval_escalated"
	HistoryEventComment           HistoryEventType = "comment"
)

func (t HistoryEventType) Valid() bool {
	switch t {
	case HistoryEventTransition, HistoryEventTransitionPending,
		HistoryEventApprovalRequested, HistoryEventApprovalGranted,
		HistoryEventApprovalRejected, HistoryEventApprovalEscalated,
		HistoryEventComment:
		return true
	default:
		return false
	}
}

// HistoryEntry is one immutable audit record. Workflow, state, transition and
// approval ids are weak references: the entry must survive later edits to the
// definitions it points at. Ordering is by PerformedAt, ties broken by ID.
type HistoryEntry struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenant_id" validate:"required"`
	Entity       EntityRef        `json:"entity"`
	WorkflowID   string           `json:"workflow_id,omitempty"`
	FromStateID  string           `json:"from_state_id,omitempty"`
	ToStateID    string           `json:"to_state_id,omitempty"`
	TransitionID string           `json:"transition_id,omitempty"`
	ApprovalID   string           `json:"approval_id,omitempty"`
	EventType    HistoryEventType `json:"event_type" validate:"required"`
	Description  string           `json:"description"`
	Comment      string           `json:"comment,omitempty"`
	PerformedBy  string           `json:"performed_by"`
	PerformedAt  time.Time        `json:"performed_at"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}
