// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mfgworks/flowgate/pkg/persistence"
	"github.com/mfgworks/flowgate/pkg/persistence/memory"
	"github.com/mfgworks/flowgate/pkg/persistence/postgres"
)

// NewPersistence selects the storage backend from the database URL scheme.
// Anything that is not a PostgreSQL URL falls back to the in-memory store,
// which is only suitable for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgres.NewPersistence(ctx, logger, databaseURL)
	default:
		logger.WarnContext(ctx, "No PostgreSQL URL configured, using in-memory persistence")

		return memory.NewPersistence(), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return provider
}
