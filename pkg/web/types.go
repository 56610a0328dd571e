package web

import (
	"github.com/mfgworks/flowgate/pkg/models"
)

// CreateWorkflowRequest is the payload for registering a workflow definition.
type CreateWorkflowRequest struct {
	Name       string         `json:"name"        validate:"required,min=3"`
	Code       string         `json:"code"        validate:"required"`
	EntityType string         `json:"entity_type" validate:"required"`
	IsDefault  bool           `json:"is_default"`
	IsActive   *bool          `json:"is_active"`
	Config     map[string]any `json:"config"`
}

// UpdateWorkflowRequest carries partial workflow updates. Entity type is
// immutable and therefore absent.
type UpdateWorkflowRequest struct {
	Name      *string        `json:"name" validate:"omitempty,min=3"`
	IsDefault *bool          `json:"is_default"`
	IsActive  *bool          `json:"is_active"`
	Config    map[string]any `json:"config"`
}

// CreateStateRequest is the payload for adding a state to a workflow.
type CreateStateRequest struct {
	Code             string                    `json:"code" validate:"required"`
	Name             string                    `json:"name" validate:"required"`
	Type             string                    `json:"type" validate:"required"`
	Color            string                    `json:"color"`
	Icon             string                    `json:"icon"`
	Position         int                       `json:"position"`
	RequiresApproval bool                      `json:"requires_approval"`
	EntryActions     []models.ActionDescriptor `json:"entry_actions"`
	Metadata         map[string]any            `json:"metadata"`
	IsActive         *bool                     `json:"is_active"`
}

// UpdateStateRequest carries partial state updates. Code and type are
// immutable and therefore absent.
type UpdateStateRequest struct {
	Name             *string                   `json:"name"`
	Color            *string                   `json:"color"`
	Icon             *string                   `json:"icon"`
	Position         *int                      `json:"position"`
	RequiresApproval *bool                     `json:"requires_approval"`
	EntryActions     []models.ActionDescriptor `json:"entry_actions"`
	Metadata         map[string]any            `json:"metadata"`
	IsActive         *bool                     `json:"is_active"`
}

// CreateTransitionRequest is the payload for adding a transition.
type CreateTransitionRequest struct {
	FromStateID      string                       `json:"from_state_id" validate:"required"`
	ToStateID        string                       `json:"to_state_id"   validate:"required"`
	Code             string                       `json:"code"          validate:"required"`
	Name             string                       `json:"name"          validate:"required"`
	RequiresApproval bool                         `json:"requires_approval"`
	RequiresComment  bool                         `json:"requires_comment"`
	Conditions       *models.TransitionConditions `json:"conditions"`
	PreActions       []models.ActionDescriptor    `json:"pre_actions"`
	PostActions      []models.ActionDescriptor    `json:"post_actions"`
	Position         int                          `json:"position"`
	IsActive         *bool                        `json:"is_active"`
}

// UpdateTransitionRequest carries partial transition updates. Endpoints are
// immutable and therefore absent.
type UpdateTransitionRequest struct {
	Name             *string                      `json:"name"`
	RequiresApproval *bool                        `json:"requires_approval"`
	RequiresComment  *bool                        `json:"requires_comment"`
	Conditions       *models.TransitionConditions `json:"conditions"`
	PreActions       []models.ActionDescriptor    `json:"pre_actions"`
	PostActions      []models.ActionDescriptor    `json:"post_actions"`
	Position         *int                         `json:"position"`
	IsActive         *bool                        `json:"is_active"`
}

// StartWorkflowRequest enrolls an entity. An empty workflow code selects the
// tenant's default workflow for the entity type.
type StartWorkflowRequest struct {
	WorkflowCode string `json:"workflow_code"`
}

// ExecuteTransitionRequest carries the caller-supplied inputs of one
// transition execution.
type ExecuteTransitionRequest struct {
	EntityData map[string]any `json:"entity_data"`
	Comment    string         `json:"comment"`
}

// ValidateTransitionRequest is the dry-run variant of a transition.
type ValidateTransitionRequest struct {
	EntityData map[string]any `json:"entity_data"`
	ActorRoles []string       `json:"actor_roles"`
}

// RequestApprovalRequest creates a standalone approval outside any
// transition.
type RequestApprovalRequest struct {
	EntityType     string         `json:"entity_type" validate:"required"`
	EntityID       string         `json:"entity_id"   validate:"required"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	ApproverUserID string         `json:"approver_user_id"`
	ApproverRole   string         `json:"approver_role"`
	Priority       string         `json:"priority"`
	DueHours       float64        `json:"due_hours" validate:"omitempty,gt=0"`
	Metadata       map[string]any `json:"metadata"`
}

// DecideApprovalRequest resolves a pending approval.
type DecideApprovalRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Comment  string `json:"comment"`
}

// AddCommentRequest appends a manual comment to an entity's history.
type AddCommentRequest struct {
	Comment string `json:"comment" validate:"required"`
}
