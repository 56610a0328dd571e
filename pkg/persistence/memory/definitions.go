package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

type workflowRepository struct {
	p *Persistence
}

func copyWorkflow(workflow *models.Workflow) *models.Workflow {
	copied := *workflow

	return &copied
}

func (r *workflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	var err error

	r.p.write(func(s *store) {
		for _, existing := range s.workflows {
			if existing.DeletedAt == nil &&
				existing.TenantID == workflow.TenantID &&
				existing.Code == workflow.Code {
				err = persistence.NewStorageError("Create", "workflow", workflow.Code, persistence.ErrDuplicateCode)

				return
			}
		}

		s.workflows[workflow.ID] = copyWorkflow(workflow)
	})

	return err
}

func (r *workflowRepository) GetByID(_ context.Context, tenantID, id string) (*models.Workflow, error) {
	var workflow *models.Workflow

	r.p.read(func(s *store) {
		existing, ok := s.workflows[id]
		if ok && existing.TenantID == tenantID && existing.DeletedAt == nil {
			workflow = copyWorkflow(existing)
		}
	})

	if workflow == nil {
		return nil, persistence.NewStorageError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (r *workflowRepository) GetByCode(_ context.Context, tenantID, code string) (*models.Workflow, error) {
	var workflow *models.Workflow

	r.p.read(func(s *store) {
		for _, existing := range s.workflows {
			if existing.TenantID == tenantID && existing.Code == code && existing.DeletedAt == nil {
				workflow = copyWorkflow(existing)

				return
			}
		}
	})

	if workflow == nil {
		return nil, persistence.NewStorageError("GetByCode", "workflow", code, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (r *workflowRepository) List(_ context.Context, tenantID string, entityType models.EntityType) ([]*models.Workflow, error) {
	var workflows []*models.Workflow

	r.p.read(func(s *store) {
		for _, existing := range s.workflows {
			if existing.TenantID != tenantID || existing.DeletedAt != nil {
				continue
			}

			if entityType != "" && existing.EntityType != entityType {
				continue
			}

			workflows = append(workflows, copyWorkflow(existing))
		}
	})

	sort.Slice(workflows, func(i, j int) bool {
		if !workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) {
			return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}

		return workflows[i].ID < workflows[j].ID
	})

	return workflows, nil
}

func (r *workflowRepository) Default(_ context.Context, tenantID string, entityType models.EntityType) (*models.Workflow, error) {
	var workflow *models.Workflow

	r.p.read(func(s *store) {
		for _, existing := range s.workflows {
			if existing.TenantID == tenantID &&
				existing.EntityType == entityType &&
				existing.IsDefault &&
				existing.DeletedAt == nil {
				workflow = copyWorkflow(existing)

				return
			}
		}
	})

	if workflow == nil {
		return nil, persistence.NewStorageError("Default", "workflow", string(entityType), persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (r *workflowRepository) Update(_ context.Context, workflow *models.Workflow) error {
	var err error

	r.p.write(func(s *store) {
		existing, ok := s.workflows[workflow.ID]
		if !ok || existing.TenantID != workflow.TenantID || existing.DeletedAt != nil {
			err = persistence.NewStorageError("Update", "workflow", workflow.ID, persistence.ErrWorkflowNotFound)

			return
		}

		for id, other := range s.workflows {
			if id != workflow.ID &&
				other.DeletedAt == nil &&
				other.TenantID == workflow.TenantID &&
				other.Code == workflow.Code {
				err = persistence.NewStorageError("Update", "workflow", workflow.Code, persistence.ErrDuplicateCode)

				return
			}
		}

		s.workflows[workflow.ID] = copyWorkflow(workflow)
	})

	return err
}

func (r *workflowRepository) ClearDefault(_ context.Context, tenantID string, entityType models.EntityType, exceptID string) error {
	r.p.write(func(s *store) {
		for id, existing := range s.workflows {
			if id == exceptID ||
				existing.TenantID != tenantID ||
				existing.EntityType != entityType ||
				!existing.IsDefault {
				continue
			}

			updated := copyWorkflow(existing)
			updated.IsDefault = false
			s.workflows[id] = updated
		}
	})

	return nil
}

func (r *workflowRepository) Delete(_ context.Context, tenantID, id string) error {
	var err error

	r.p.write(func(s *store) {
		existing, ok := s.workflows[id]
		if !ok || existing.TenantID != tenantID || existing.DeletedAt != nil {
			err = persistence.NewStorageError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)

			return
		}

		deleted := copyWorkflow(existing)
		now := time.Now().UTC()
		deleted.DeletedAt = &now
		s.workflows[id] = deleted
	})

	return err
}

type stateRepository struct {
	p *Persistence
}

func copyState(state *models.WorkflowState) *models.WorkflowState {
	copied := *state

	return &copied
}

func (r *stateRepository) Create(_ context.Context, state *models.WorkflowState) error {
	var err error

	r.p.write(func(s *store) {
		for _, existing := range s.states {
			if existing.WorkflowID == state.WorkflowID && existing.Code == state.Code {
				err = persistence.NewStorageError("Create", "state", state.Code, persistence.ErrDuplicateCode)

				return
			}
		}

		s.states[state.ID] = copyState(state)
	})

	return err
}

func (r *stateRepository) GetByID(_ context.Context, id string) (*models.WorkflowState, error) {
	var state *models.WorkflowState

	r.p.read(func(s *store) {
		if existing, ok := s.states[id]; ok {
			state = copyState(existing)
		}
	})

	if state == nil {
		return nil, persistence.NewStorageError("GetByID", "state", id, persistence.ErrStateNotFound)
	}

	return state, nil
}

func (r *stateRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowState, error) {
	var states []*models.WorkflowState

	r.p.read(func(s *store) {
		for _, existing := range s.states {
			if existing.WorkflowID == workflowID {
				states = append(states, copyState(existing))
			}
		}
	})

	sort.Slice(states, func(i, j int) bool {
		if states[i].Position != states[j].Position {
			return states[i].Position < states[j].Position
		}

		return states[i].Code < states[j].Code
	})

	return states, nil
}

func (r *stateRepository) Initial(_ context.Context, workflowID string) (*models.WorkflowState, error) {
	var state *models.WorkflowState

	r.p.read(func(s *store) {
		for _, existing := range s.states {
			if existing.WorkflowID == workflowID && existing.Type == models.StateTypeInitial {
				state = copyState(existing)

				return
			}
		}
	})

	if state == nil {
		return nil, persistence.NewStorageError("Initial", "state", workflowID, persistence.ErrStateNotFound)
	}

	return state, nil
}

func (r *stateRepository) Update(_ context.Context, state *models.WorkflowState) error {
	var err error

	r.p.write(func(s *store) {
		if _, ok := s.states[state.ID]; !ok {
			err = persistence.NewStorageError("Update", "state", state.ID, persistence.ErrStateNotFound)

			return
		}

		s.states[state.ID] = copyState(state)
	})

	return err
}

func (r *stateRepository) Delete(_ context.Context, id string) error {
	var err error

	r.p.write(func(s *store) {
		if _, ok := s.states[id]; !ok {
			err = persistence.NewStorageError("Delete", "state", id, persistence.ErrStateNotFound)

			return
		}

		delete(s.states, id)
	})

	return err
}

func (r *stateRepository) DeleteByWorkflow(_ context.Context, workflowID string) error {
	r.p.write(func(s *store) {
		for id, existing := range s.states {
			if existing.WorkflowID == workflowID {
				delete(s.states, id)
			}
		}
	})

	return nil
}

type transitionRepository struct {
	p *Persistence
}

func copyTransition(transition *models.WorkflowTransition) *models.WorkflowTransition {
	copied := *transition

	return &copied
}

func (r *transitionRepository) Create(_ context.Context, transition *models.WorkflowTransition) error {
	var err error

	r.p.write(func(s *store) {
		for _, existing := range s.transitions {
			if existing.WorkflowID == transition.WorkflowID && existing.Code == transition.Code {
				err = persistence.NewStorageError("Create", "transition", transition.Code, persistence.ErrDuplicateCode)

				return
			}
		}

		s.transitions[transition.ID] = copyTransition(transition)
	})

	return err
}

func (r *transitionRepository) GetByID(_ context.Context, id string) (*models.WorkflowTransition, error) {
	var transition *models.WorkflowTransition

	r.p.read(func(s *store) {
		if existing, ok := s.transitions[id]; ok {
			transition = copyTransition(existing)
		}
	})

	if transition == nil {
		return nil, persistence.NewStorageError("GetByID", "transition", id, persistence.ErrTransitionNotFound)
	}

	return transition, nil
}

func (r *transitionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowTransition, error) {
	var transitions []*models.WorkflowTransition

	r.p.read(func(s *store) {
		for _, existing := range s.transitions {
			if existing.WorkflowID == workflowID {
				transitions = append(transitions, copyTransition(existing))
			}
		}
	})

	sortTransitions(transitions)

	return transitions, nil
}

func (r *transitionRepository) ListFromState(_ context.Context, fromStateID string) ([]*models.WorkflowTransition, error) {
	var transitions []*models.WorkflowTransition

	r.p.read(func(s *store) {
		for _, existing := range s.transitions {
			if existing.FromStateID == fromStateID && existing.IsActive {
				transitions = append(transitions, copyTransition(existing))
			}
		}
	})

	sortTransitions(transitions)

	return transitions, nil
}

func sortTransitions(transitions []*models.WorkflowTransition) {
	sort.Slice(transitions, func(i, j int) bool {
		if transitions[i].Position != transitions[j].Position {
			return transitions[i].Position < transitions[j].Position
		}

		return transitions[i].Code < transitions[j].Code
	})
}

func (r *transitionRepository) Update(_ context.Context, transition *models.WorkflowTransition) error {
	var err error

	r.p.write(func(s *store) {
		if _, ok := s.transitions[transition.ID]; !ok {
			err = persistence.NewStorageError("Update", "transition", transition.ID, persistence.ErrTransitionNotFound)

			return
		}

		s.transitions[transition.ID] = copyTransition(transition)
	})

	return err
}

func (r *transitionRepository) Delete(_ context.Context, id string) error {
	var err error

	r.p.write(func(s *store) {
		if _, ok := s.transitions[id]; !ok {
			err = persistence.NewStorageError("Delete", "transition", id, persistence.ErrTransitionNotFound)

			return
		}

		delete(s.transitions, id)
	})

	return err
}

func (r *transitionRepository) DeleteByWorkflow(_ context.Context, workflowID string) error {
	r.p.write(func(s *store) {
		for id, existing := range s.transitions {
			if existing.WorkflowID == workflowID {
				delete(s.transitions, id)
			}
		}
	})

	return nil
}
