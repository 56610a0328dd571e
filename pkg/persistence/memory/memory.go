// Package memory provides an in-memory persistence implementation used for
// local development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
)

// store holds every record map. Repositories replace stored values wholesale
// on writes and hand out copies on reads, so a transaction snapshot only
// needs to copy the maps themselves.
type store struct {
	workflows   map[string]*models.Workflow
	states      map[string]*models.WorkflowState
	transitions map[string]*models.WorkflowTransition
	approvals   map[string]*models.Approval
	history     []*models.HistoryEntry
	cursors     map[string]*models.EntityCursor
}

func newStore() *store {
	return &store{
		workflows:   make(map[string]*models.Workflow),
		states:      make(map[string]*models.WorkflowState),
		transitions: make(map[string]*models.WorkflowTransition),
		approvals:   make(map[string]*models.Approval),
		cursors:     make(map[string]*models.EntityCursor),
	}
}

func (s *store) clone() *store {
	copied := newStore()

	for id, workflow := range s.workflows {
		copied.workflows[id] = workflow
	}

	for id, state := range s.states {
		copied.states[id] = state
	}

	for id, transition := range s.transitions {
		copied.transitions[id] = transition
	}

	for id, approval := range s.approvals {
		copied.approvals[id] = approval
	}

	copied.history = append([]*models.HistoryEntry(nil), s.history...)

	for key, cursor := range s.cursors {
		copied.cursors[key] = cursor
	}

	return copied
}

// Persistence implements persistence.Persistence on top of process memory.
type Persistence struct {
	mu   *sync.RWMutex
	data *store
	inTx bool
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		mu:   &sync.RWMutex{},
		data: newStore(),
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return &workflowRepository{p: p}
}

func (p *Persistence) States() persistence.StateRepository {
	return &stateRepository{p: p}
}

func (p *Persistence) Transitions() persistence.TransitionRepository {
	return &transitionRepository{p: p}
}

func (p *Persistence) Approvals() persistence.ApprovalRepository {
	return &approvalRepository{p: p}
}

func (p *Persistence) History() persistence.HistoryRepository {
	return &historyRepository{p: p}
}

func (p *Persistence) Cursors() persistence.CursorRepository {
	return &cursorRepository{p: p}
}

// InTransaction runs fn against a snapshot of the store. The snapshot
// replaces the live store only when fn succeeds, giving all-or-nothing
// semantics. The store lock is held for the whole transaction.
func (p *Persistence) InTransaction(ctx context.Context, fn func(ctx context.Context, tx persistence.Persistence) error) error {
	if p.inTx {
		return fn(ctx, p)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := p.data.clone()
	tx := &Persistence{mu: p.mu, data: snapshot, inTx: true}

	err := fn(ctx, tx)
	if err != nil {
		return err
	}

	p.data = snapshot

	return nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// read runs fn under the read lock unless already inside a transaction.
func (p *Persistence) read(fn func(s *store)) {
	if p.inTx {
		fn(p.data)

		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	fn(p.data)
}

// write runs fn under the write lock unless already inside a transaction.
func (p *Persistence) write(fn func(s *store)) {
	if p.inTx {
		fn(p.data)

		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fn(p.data)
}
