package models

// Action names the base engine recognizes. Unrecognized names in a
// descriptor are skipped by the dispatcher so workflow configuration can
// evolve ahead of deployed handlers.
const (
	ActionSendNotification = "send_notification"
	ActionUpdateEntity     = "update_entity"
	ActionCreateApproval   = "create_approval"
	ActionAssignTo         = "assign_to"
)

// ActionDescriptor is a declarative side-effect request carried on a state or
// transition. The engine dispatches descriptors to named handlers; it never
// performs the side effect itself.
type ActionDescriptor struct {
	Action string         `json:"action" validate:"required"`
	Params map[string]any `json:"params,omitempty"`
}

// ActionContext carries the execution context an action handler needs to
// address the entity it operates on.
type ActionContext struct {
	TenantID   string    `json:"tenant_id"`
	Entity     EntityRef `json:"entity"`
	ActorID    string    `json:"actor_id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	StateID    string    `json:"state_id,omitempty"`
}
