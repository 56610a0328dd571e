package memory

import (
	"context"
	"sort"

	"github.com/mfgworks/flowgate/pkg/models"
)

type historyRepository struct {
	p *Persistence
}

func copyHistoryEntry(entry *models.HistoryEntry) *models.HistoryEntry {
	copied := *entry

	return &copied
}

func (r *historyRepository) Append(_ context.Context, entry *models.HistoryEntry) error {
	r.p.write(func(s *store) {
		s.history = append(s.history, copyHistoryEntry(entry))
	})

	return nil
}

func (r *historyRepository) ListForEntity(_ context.Context, tenantID string, entity models.EntityRef, limit, offset int) ([]*models.HistoryEntry, error) {
	var entries []*models.HistoryEntry

	r.p.read(func(s *store) {
		for _, existing := range s.history {
			if existing.TenantID == tenantID && existing.Entity == entity {
				entries = append(entries, copyHistoryEntry(existing))
			}
		}
	})

	// Newest first, ties broken by id so pagination is stable.
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].PerformedAt.Equal(entries[j].PerformedAt) {
			return entries[i].PerformedAt.After(entries[j].PerformedAt)
		}

		return entries[i].ID > entries[j].ID
	})

	if offset > 0 {
		if offset >= len(entries) {
			return nil, nil
		}

		entries = entries[offset:]
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
