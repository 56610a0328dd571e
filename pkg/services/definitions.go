package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mfgworks/flowgate/pkg/conditions"
	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

// Definitions manages workflow definitions: the workflows themselves, their
// states and their transitions. Rules misconfigurations are rejected here,
// at definition time, so the executor never meets them.
type Definitions struct {
	persistence persistence.Persistence
	fields      *models.FieldRegistry
	logger      *slog.Logger
}

// NewDefinitions creates a new definition service. A nil field registry
// falls back to the stock ERP field registry.
func NewDefinitions(persistence persistence.Persistence, fields *models.FieldRegistry, logger *slog.Logger) *Definitions {
	if fields == nil {
		fields = models.DefaultFieldRegistry()
	}

	return &Definitions{
		persistence: persistence,
		fields:      fields,
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (d *Definitions) HealthCheck(ctx context.Context) (string, bool) {
	if d.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := d.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflow registers a new workflow definition. Marking it default
// clears the default flag from the tenant's other workflows of the same
// entity type.
func (d *Definitions) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	const op = "Definitions.CreateWorkflow"

	if workflow == nil {
		return nil, NewServiceError(op, "WORKFLOW_NIL", "Workflow cannot be nil", ErrWorkflowNil)
	}

	if workflow.TenantID == "" || workflow.Name == "" {
		return nil, NewServiceError(op, "MISSING_FIELDS", "Tenant and name are required", ErrInvalidRequest)
	}

	if !models.ValidCode(workflow.Code) {
		return nil, NewServiceError(op, "INVALID_CODE",
			fmt.Sprintf("Code '%s' must be uppercase letters, digits and underscores", workflow.Code), ErrInvalidCode)
	}

	if err := models.ValidateEntityType(workflow.EntityType); err != nil {
		return nil, NewServiceError(op, "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.ID = id.String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.DeletedAt = nil

	err = d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		err := tx.Workflows().Create(ctx, workflow)
		if err != nil {
			return err
		}

		if workflow.IsDefault {
			return tx.Workflows().ClearDefault(ctx, workflow.TenantID, workflow.EntityType, workflow.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "Workflow created",
		"workflow_id", workflow.ID, "code", workflow.Code, "tenant_id", workflow.TenantID)

	return workflow, nil
}

// GetWorkflow returns one workflow by id.
func (d *Definitions) GetWorkflow(ctx context.Context, tenantID, id string) (*models.Workflow, error) {
	return d.persistence.Workflows().GetByID(ctx, tenantID, id)
}

// ListWorkflows returns the tenant's workflows, optionally filtered by
// entity type.
func (d *Definitions) ListWorkflows(ctx context.Context, tenantID string, entityType models.EntityType) ([]*models.Workflow, error) {
	if entityType != "" {
		if err := models.ValidateEntityType(entityType); err != nil {
			return nil, NewServiceError("Definitions.ListWorkflows", "INVALID_ENTITY_TYPE", err.Error(), ErrInvalidEntityType)
		}
	}

	return d.persistence.Workflows().List(ctx, tenantID, entityType)
}

// UpdateWorkflow applies definition changes. The entity type is fixed for
// the workflow's lifetime and system workflows reject all mutation.
func (d *Definitions) UpdateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	const op = "Definitions.UpdateWorkflow"

	if workflow == nil {
		return nil, NewServiceError(op, "WORKFLOW_NIL", "Workflow cannot be nil", ErrWorkflowNil)
	}

	if !models.ValidCode(workflow.Code) {
		return nil, NewServiceError(op, "INVALID_CODE",
			fmt.Sprintf("Code '%s' must be uppercase letters, digits and underscores", workflow.Code), ErrInvalidCode)
	}

	err := d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		existing, err := tx.Workflows().GetByID(ctx, workflow.TenantID, workflow.ID)
		if err != nil {
			return err
		}

		if existing.IsSystem {
			return NewServiceError(op, "SYSTEM_WORKFLOW",
				"System workflows cannot be modified", ErrSystemWorkflow)
		}

		if workflow.EntityType != existing.EntityType {
			return NewServiceError(op, "ENTITY_TYPE_IMMUTABLE",
				"The entity type of a workflow cannot be changed", ErrImmutableField)
		}

		workflow.IsSystem = existing.IsSystem
		workflow.CreatedAt = existing.CreatedAt
		workflow.UpdatedAt = time.Now().UTC()

		err = tx.Workflows().Update(ctx, workflow)
		if err != nil {
			return err
		}

		if workflow.IsDefault && !existing.IsDefault {
			return tx.Workflows().ClearDefault(ctx, workflow.TenantID, workflow.EntityType, workflow.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// DeleteWorkflow soft-deletes a workflow and hard-deletes its states and
// transitions. History and approvals survive: they reference the workflow
// by id only.
func (d *Definitions) DeleteWorkflow(ctx context.Context, tenantID, id string) error {
	const op = "Definitions.DeleteWorkflow"

	return d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		existing, err := tx.Workflows().GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}

		if existing.IsSystem {
			return NewServiceError(op, "SYSTEM_WORKFLOW",
				"System workflows cannot be deleted", ErrSystemWorkflow)
		}

		err = tx.Transitions().DeleteByWorkflow(ctx, id)
		if err != nil {
			return err
		}

		err = tx.States().DeleteByWorkflow(ctx, id)
		if err != nil {
			return err
		}

		return tx.Workflows().Delete(ctx, tenantID, id)
	})
}

// AddState appends a state to a workflow. A workflow holds at most one
// INITIAL state.
func (d *Definitions) AddState(ctx context.Context, tenantID string, state *models.WorkflowState) (*models.WorkflowState, error) {
	const op = "Definitions.AddState"

	if !models.ValidCode(state.Code) {
		return nil, NewServiceError(op, "INVALID_CODE",
			fmt.Sprintf("Code '%s' must be uppercase letters, digits and underscores", state.Code), ErrInvalidCode)
	}

	if !state.Type.Valid() {
		return nil, NewServiceError(op, "INVALID_STATE_TYPE",
			fmt.Sprintf("Unknown state type '%s'", state.Type), ErrInvalidStateType)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state.ID = id.String()
	state.CreatedAt = now
	state.UpdatedAt = now

	err = d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		workflow, err := tx.Workflows().GetByID(ctx, tenantID, state.WorkflowID)
		if err != nil {
			return err
		}

		if workflow.IsSystem {
			return NewServiceError(op, "SYSTEM_WORKFLOW",
				"System workflows cannot be modified", ErrSystemWorkflow)
		}

		if state.Type == models.StateTypeInitial {
			_, err := tx.States().Initial(ctx, workflow.ID)
			if err == nil {
				return NewServiceError(op, "DUPLICATE_INITIAL",
					"Workflow already has an initial state", ErrInitialStateRequired)
			}

			if !persistence.IsStateNotFound(err) {
				return err
			}
		}

		return tx.States().Create(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// UpdateState applies display and behavior changes. Code and type identify
// the state's role in the machine and are immutable.
func (d *Definitions) UpdateState(ctx context.Context, tenantID string, state *models.WorkflowState) (*models.WorkflowState, error) {
	const op = "Definitions.UpdateState"

	err := d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		existing, err := tx.States().GetByID(ctx, state.ID)
		if err != nil {
			return err
		}

		workflow, err := tx.Workflows().GetByID(ctx, tenantID, existing.WorkflowID)
		if err != nil {
			return err
		}

		if workflow.IsSystem {
			return NewServiceError(op, "SYSTEM_WORKFLOW",
				"System workflows cannot be modified", ErrSystemWorkflow)
		}

		if state.Code != existing.Code || state.Type != existing.Type {
			return NewServiceError(op, "STATE_IMMUTABLE",
				"State code and type cannot be changed after creation", ErrImmutableField)
		}

		state.WorkflowID = existing.WorkflowID
		state.CreatedAt = existing.CreatedAt
		state.UpdatedAt = time.Now().UTC()

		return tx.States().Update(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// DeleteState removes a state that no transition references.
func (d *Definitions) DeleteState(ctx context.Context, tenantID, stateID string) error {
	const op = "Definitions.DeleteState"

	return d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		state, err := tx.States().GetByID(ctx, stateID)
		if err != nil {
			return err
		}

		workflow, err := tx.Workflows().GetByID(ctx, tenantID, state.WorkflowID)
		if err != nil {
			return err
		}

		if workflow.IsSystem {
			return NewServiceError(op, "SYSTEM_WORKFLOW",
				"System workflows cannot be modified", ErrSystemWorkflow)
		}

		transitions, err := tx.Transitions().ListByWorkflow(ctx, workflow.ID)
		if err != nil {
			return err
		}

		for _, transition := range transitions {
			if transition.FromStateID == stateID || transition.ToStateID == stateID {
				return NewServiceError(op, "STATE_IN_USE",
					fmt.Sprintf("State is referenced by transition %s", transition.Code), ErrInvalidRequest)
			}
		}

		return tx.States().Delete(ctx, stateID)
	})
}

// AddTransition appends a transition. Both endpoints must belong to the
// transition's workflow, and condition rules are validated against the
// entity type's field registry so misconfigurations fail here rather than
// at execution time.
func (d *Definitions) AddTransition(ctx context.Context, tenantID string, transition *models.WorkflowTransition) (*models.WorkflowTransition, error) {
	const op = "Definitions.AddTransition"

	if !models.ValidCode(transition.Code) {
		return nil, NewServiceError(op, "INVALID_CODE",
			fmt.Sprintf("Code '%s' must be uppercase letters, digits and underscores", transition.Code), ErrInvalidCode)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	transition.ID = id.String()
	transition.CreatedAt = now
	transition.UpdatedAt = now

	err = d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		workflow, err := tx.Workflows().GetByID(ctx, tenantID, transition.WorkflowID)
		if err != nil {
			return err
		}

		if workflow.IsSystem {
			return NewServiceError(op, "SYSTEM_WORKFLOW",
				"System workflows cannot be modified", ErrSystemWorkflow)
		}

		err = d.checkEndpoints(ctx, tx, transition)
		if err != nil {
			return err
		}

		err = conditions.ValidateRules(transition.Conditions, workflow.EntityType, d.fields)
		if err != nil {
			return NewServiceError(op, "INVALID_CONDITIONS", err.Error(), ErrInvalidConditions)
		}

		return tx.Transitions().Create(ctx, transition)
	})
	if err != nil {
		return nil, err
	}

	return transition, nil
}

// UpdateTransition applies changes. Source and target states are immutable;
// changed conditions are re-validated.
func (d *Definitions) UpdateTransition(ctx context.Context, tenantID string, transition *models.WorkflowTransition) (*models.WorkflowTransition, error) {
	const op = "Definitions.UpdateTransition"

	err := d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		existing, err := tx.Transitions().GetByID(ctx, transition.ID)
		if err != nil {
			return err
		}

		workflow, err := tx.Workflows().GetByID(ctx, tenantID, existing.WorkflowID)
		if err != nil {
			return err
		}

		if workflow.IsSystem {
			return NewServiceError(op, "SYSTEM_WORKFLOW",
				"System workflows cannot be modified", ErrSystemWorkflow)
		}

		if transition.FromStateID != existing.FromStateID || transition.ToStateID != existing.ToStateID {
			return NewServiceError(op, "ENDPOINTS_IMMUTABLE",
				"Transition source and target states cannot be changed after creation", ErrImmutableField)
		}

		err = conditions.ValidateRules(transition.Conditions, workflow.EntityType, d.fields)
		if err != nil {
			return NewServiceError(op, "INVALID_CONDITIONS", err.Error(), ErrInvalidConditions)
		}

		transition.WorkflowID = existing.WorkflowID
		transition.CreatedAt = existing.CreatedAt
		transition.UpdatedAt = time.Now().UTC()

		return tx.Transitions().Update(ctx, transition)
	})
	if err != nil {
		return nil, err
	}

	return transition, nil
}

// DeleteTransition removes one transition.
func (d *Definitions) DeleteTransition(ctx context.Context, tenantID, transitionID string) error {
	const op = "Definitions.DeleteTransition"

	return d.persistence.InTransaction(ctx, func(ctx context.Context, tx persistence.Persistence) error {
		transition, err := tx.Transitions().GetByID(ctx, transitionID)
		if err != nil {
			return err
		}

		workflow, err := tx.Workflows().GetByID(ctx, tenantID, transition.WorkflowID)
		if err != nil {
			return err
		}

		if workflow.IsSystem {
			return NewServiceError(op, "SYSTEM_WORKFLOW",
				"System workflows cannot be modified", ErrSystemWorkflow)
		}

		return tx.Transitions().Delete(ctx, transitionID)
	})
}

// States returns a workflow's states ordered by position.
func (d *Definitions) States(ctx context.Context, tenantID, workflowID string) ([]*models.WorkflowState, error) {
	_, err := d.persistence.Workflows().GetByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	return d.persistence.States().ListByWorkflow(ctx, workflowID)
}

// Transitions returns a workflow's transitions ordered by position.
func (d *Definitions) Transitions(ctx context.Context, tenantID, workflowID string) ([]*models.WorkflowTransition, error) {
	_, err := d.persistence.Workflows().GetByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	return d.persistence.Transitions().ListByWorkflow(ctx, workflowID)
}

func (d *Definitions) checkEndpoints(ctx context.Context, tx persistence.Persistence, transition *models.WorkflowTransition) error {
	const op = "Definitions.AddTransition"

	from, err := tx.States().GetByID(ctx, transition.FromStateID)
	if err != nil {
		return err
	}

	to, err := tx.States().GetByID(ctx, transition.ToStateID)
	if err != nil {
		return err
	}

	if from.WorkflowID != transition.WorkflowID || to.WorkflowID != transition.WorkflowID {
		return NewServiceError(op, "CROSS_WORKFLOW",
			"Transition states must belong to the transition's workflow", ErrCrossWorkflowTransition)
	}

	return nil
}
