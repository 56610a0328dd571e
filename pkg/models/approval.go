package models

import "time"

// ApprovalStatus is the lifecycle state of an approval request. The only
// legal mutations are PENDING to one of the resolved statuses.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "PENDING"
	ApprovalStatusApproved  ApprovalStatus = "APPROVED"
	ApprovalStatusRejected  ApprovalStatus = "REJECTED"
	ApprovalStatusCancelled ApprovalStatus = "CANCELLED"
	ApprovalStatusEscalated ApprovalStatus = "ESCALATED"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected,
		ApprovalStatusCancelled, ApprovalStatusEscalated:
		return true
	default:
		return false
	}
}

// Resolved reports whether the approval has left PENDING.
func (s ApprovalStatus) Resolved() bool {
	return s != ApprovalStatusPending
}

// ApprovalPriority orders pending approvals in inbox views.
type ApprovalPriority string

const (
	PriorityLow      ApprovalPriority = "LOW"
	PriorityMedium   ApprovalPriority = "MEDIUM"
	PriorityHigh     ApprovalPriority = "HIGH"
	PriorityCritical ApprovalPriority = "CRITICAL"
)

func (p ApprovalPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Weight maps a priority to its sort rank; higher sorts first.
func (p ApprovalPriority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// DefaultApprovalDueWindow is applied when a request carries no due date.
const DefaultApprovalDueWindow = 48 * time.Hour

// Approval is a pending or resolved human-decision record gating one state
// change. It references workflow definitions by id only so it survives later
// edits to them. Never hard-deleted.
type Approval struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id" validate:"required"`
	Entity      EntityRef  `json:"entity"`
	WorkflowID  string     `json:"workflow_id,omitempty"`
	StateID     string     `json:"state_id,omitempty"` // target state entered when granted
	Type        string     `json:"type"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description,omitempty"`

	// Assignment: at least one of ApproverUserID / ApproverRole is present.
	ApproverUserID string `json:"approver_user_id,omitempty"`
	ApproverRole   string `json:"approver_role,omitempty"`

	Status      ApprovalStatus   `json:"status"`
	Priority    ApprovalPriority `json:"priority"`
	RequestedBy string           `json:"requested_by"`
	RequestedAt time.Time        `json:"requested_at"`
	DueAt       *time.Time       `json:"due_at,omitempty"`

	ResolvedBy        string         `json:"resolved_by,omitempty"`
	ResolutionComment string         `json:"resolution_comment,omitempty"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Assigned reports whether the approval names at least one assignee.
func (a *Approval) Assigned() bool {
	return a.ApproverUserID != "" || a.ApproverRole != ""
}

// Overdue reports whether a pending approval has passed its due date.
func (a *Approval) Overdue(now time.Time) bool {
	return a.Status == ApprovalStatusPending && a.DueAt != nil && a.DueAt.Before(now)
}
