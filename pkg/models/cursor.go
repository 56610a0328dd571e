package models

import "time"

// EntityCursor is the materialized projection of an entity's current
// workflow state. It is written transactionally with every committed
// transition or approval, and its Version is checked-and-incremented at
// commit time so concurrent transitions on one entity cannot both land.
type EntityCursor struct {
	TenantID   string    `json:"tenant_id"`
	Entity     EntityRef `json:"entity"`
	WorkflowID string    `json:"workflow_id"`
	StateID    string    `json:"state_id"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
}
