// Package models defines the core domain model for the workflow and approval engine.
package models

import (
	"regexp"
	"time"
)

// codePattern is the format every workflow, state and transition code must
// satisfy: uppercase alphanumeric plus underscore.
var codePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ValidCode reports whether code satisfies the uppercase alphanumeric and
// underscore format shared by workflow, state and transition codes.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Workflow is a named state-machine definition scoped to one tenant and one
// entity type. It exclusively owns its states and transitions.
type Workflow struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"   validate:"required"`
	Name       string         `json:"name"        validate:"required,min=3"`
	Code       string         `json:"code"        validate:"required"`
	EntityType EntityType     `json:"entity_type" validate:"required"`
	IsDefault  bool           `json:"is_default"`
	IsActive   bool           `json:"is_active"`
	IsSystem   bool           `json:"is_system"`
	Config     map[string]any `json:"config,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  *time.Time     `json:"deleted_at,omitempty"`
}

// StateType tags a workflow state's role in the machine.
type StateType string

const (
	StateTypeInitial      StateType = "INITIAL"
	StateTypeIntermediate StateType = "INTERMEDIATE"
	StateTypeFinal        StateType = "FINAL"
	StateTypeCancelled    StateType = "CANCELLED"
	StateTypeRejected     StateType = "REJECTED"
)

func (t StateType) Valid() bool {
	switch t {
	case StateTypeInitial, StateTypeIntermediate, StateTypeFinal, StateTypeCancelled, StateTypeRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether entities in a state of this type have left the
// active portion of the machine.
func (t StateType) Terminal() bool {
	return t == StateTypeFinal || t == StateTypeCancelled || t == StateTypeRejected
}

// WorkflowState is a node of the machine. Code and Type are immutable after
// creation.
type WorkflowState struct {
	ID               string             `json:"id"`
	WorkflowID       string             `json:"workflow_id" validate:"required"`
	Code             string             `json:"code"        validate:"required"`
	Name             string             `json:"name"        validate:"required"`
	Type             StateType          `json:"type"        validate:"required"`
	Color            string             `json:"color,omitempty"`
	Icon             string             `json:"icon,omitempty"`
	Position         int                `json:"position"`
	RequiresApproval bool               `json:"requires_approval"`
	EntryActions     []ActionDescriptor `json:"entry_actions,omitempty"`
	Metadata         map[string]any     `json:"metadata,omitempty"`
	IsActive         bool               `json:"is_active"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// WorkflowTransition is a directed edge between two states of the same
// workflow. FromStateID and ToStateID are immutable after creation.
type WorkflowTransition struct {
	ID               string                `json:"id"`
	WorkflowID       string                `json:"workflow_id"   validate:"required"`
	FromStateID      string                `json:"from_state_id" validate:"required"`
	ToStateID        string                `json:"to_state_id"   validate:"required"`
	Code             string                `json:"code"          validate:"required"`
	Name             string                `json:"name"          validate:"required"`
	RequiresApproval bool                  `json:"requires_approval"`
	RequiresComment  bool                  `json:"requires_comment"`
	Conditions       *TransitionConditions `json:"conditions,omitempty"`
	PreActions       []ActionDescriptor    `json:"pre_actions,omitempty"`
	PostActions      []ActionDescriptor    `json:"post_actions,omitempty"`
	Position         int                   `json:"position"`
	IsActive         bool                  `json:"is_active"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}
