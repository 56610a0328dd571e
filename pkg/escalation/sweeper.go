// Package escalation finds approvals past their due date and escalates them.
package escalation

import (
	"context"
	"log/slog"
	"time"

	"github.com/mfgworks/flowgate/pkg/persistence"
	"github.com/mfgworks/flowgate/pkg/services"
)

// DefaultBatchSize caps how many overdue approvals one sweep processes.
const DefaultBatchSize = 100

// Sweeper escalates overdue pending approvals across all tenants. It is
// driven by a scheduler; each Sweep call is one independent pass.
type Sweeper struct {
	persistence persistence.Persistence
	approvals   *services.Approvals
	logger      *slog.Logger
	batchSize   int
}

func NewSweeper(persistence persistence.Persistence, approvals *services.Approvals, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		persistence: persistence,
		approvals:   approvals,
		logger:      logger,
		batchSize:   DefaultBatchSize,
	}
}

// Sweep escalates every approval whose due date has passed, up to the batch
// size, and returns how many were escalated. Approvals resolved between the
// overdue query and the escalation are skipped, and one failing approval
// does not stop the rest of the batch.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	overdue, err := s.persistence.Approvals().Overdue(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	escalated := 0

	for _, approval := range overdue {
		_, err := s.approvals.Escalate(ctx, approval.TenantID, approval.ID)
		if err != nil {
			if services.IsConflictError(err) {
				continue
			}

			s.logger.ErrorContext(ctx, "Failed to escalate approval",
				"approval_id", approval.ID, "tenant_id", approval.TenantID, "error", err)

			continue
		}

		escalated++
	}

	if escalated > 0 {
		s.logger.InfoContext(ctx, "Escalated overdue approvals", "count", escalated)
	}

	return escalated, nil
}
