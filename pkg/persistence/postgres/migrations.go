package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions, tenant-scoped, soft-deleted
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				code VARCHAR(100) NOT NULL,
				entity_type VARCHAR(50) NOT NULL,
				is_default BOOLEAN NOT NULL DEFAULT FALSE,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				is_system BOOLEAN NOT NULL DEFAULT FALSE,
				config JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE UNIQUE INDEX idx_workflows_tenant_code ON workflows(tenant_id, code) WHERE deleted_at IS NULL;
			CREATE INDEX idx_workflows_tenant_entity_type ON workflows(tenant_id, entity_type);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			-- Machine nodes
			CREATE TABLE workflow_states (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				code VARCHAR(100) NOT NULL,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(20) NOT NULL CHECK (type IN ('INITIAL', 'INTERMEDIATE', 'FINAL', 'CANCELLED', 'REJECTED')),
				color VARCHAR(20),
				icon VARCHAR(50),
				position INT NOT NULL DEFAULT 0,
				requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
				entry_actions JSONB,
				metadata JSONB,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, code)
			);

			CREATE INDEX idx_workflow_states_workflow ON workflow_states(workflow_id);
			CREATE UNIQUE INDEX idx_workflow_states_initial ON workflow_states(workflow_id) WHERE type = 'INITIAL';

			-- Machine edges
			CREATE TABLE workflow_transitions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				from_state_id UUID NOT NULL REFERENCES workflow_states(id),
				to_state_id UUID NOT NULL REFERENCES workflow_states(id),
				code VARCHAR(100) NOT NULL,
				name VARCHAR(255) NOT NULL,
				requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
				requires_comment BOOLEAN NOT NULL DEFAULT FALSE,
				conditions JSONB,
				pre_actions JSONB,
				post_actions JSONB,
				position INT NOT NULL DEFAULT 0,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, code)
			);

			CREATE INDEX idx_workflow_transitions_workflow ON workflow_transitions(workflow_id);
			CREATE INDEX idx_workflow_transitions_from_state ON workflow_transitions(from_state_id);

			-- Approval requests; never hard-deleted
			CREATE TABLE approvals (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				entity_type VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				workflow_id UUID,
				state_id UUID,
				type VARCHAR(50),
				title VARCHAR(255) NOT NULL,
				description TEXT,
				approver_user_id VARCHAR(255),
				approver_role VARCHAR(255),
				status VARCHAR(20) NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'CANCELLED', 'ESCALATED')),
				priority VARCHAR(20) NOT NULL,
				requested_by VARCHAR(255),
				requested_at TIMESTAMP WITH TIME ZONE NOT NULL,
				due_at TIMESTAMP WITH TIME ZONE,
				resolved_by VARCHAR(255),
				resolution_comment TEXT,
				resolved_at TIMESTAMP WITH TIME ZONE,
				metadata JSONB
			);

			CREATE INDEX idx_approvals_tenant_status ON approvals(tenant_id, status);
			CREATE INDEX idx_approvals_entity ON approvals(tenant_id, entity_type, entity_id) WHERE status = 'PENDING';
			CREATE INDEX idx_approvals_due ON approvals(due_at) WHERE status = 'PENDING';

			-- Append-only audit trail; definition ids are weak references
			CREATE TABLE workflow_history (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				entity_type VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255),
				from_state_id VARCHAR(255),
				to_state_id VARCHAR(255),
				transition_id VARCHAR(255),
				approval_id VARCHAR(255),
				event_type VARCHAR(50) NOT NULL,
				description TEXT,
				comment TEXT,
				performed_by VARCHAR(255),
				performed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				metadata JSONB
			);

			CREATE INDEX idx_workflow_history_entity ON workflow_history(tenant_id, entity_type, entity_id, performed_at DESC, id DESC);

			-- Current workflow position per entity, optimistic-locked
			CREATE TABLE entity_cursors (
				tenant_id VARCHAR(255) NOT NULL,
				entity_type VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				workflow_id UUID NOT NULL,
				state_id UUID NOT NULL,
				version BIGINT NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_by VARCHAR(255),
				PRIMARY KEY (tenant_id, entity_type, entity_id)
			);
		`,
	}
}
