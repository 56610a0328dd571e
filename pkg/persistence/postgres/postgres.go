// Package postgres provides the PostgreSQL persistence implementation for
// workflow definitions, approvals, history and entity cursors.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/mfgworks/flowgate/pkg/persistence"
	"github.com/mfgworks/flowgate/pkg/persistence/sqlbase"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the repositories run unchanged inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB // nil when this instance is a transaction scope
	logger *slog.Logger

	workflows   *WorkflowRepository
	states      *StateRepository
	transitions *TransitionRepository
	approvals   *ApprovalRepository
	history     *HistoryRepository
	cursors     *CursorRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return newPersistence(database, database, logger), nil
}

func newPersistence(db *sql.DB, q querier, logger *slog.Logger) *Persistence {
	return &Persistence{
		db:          db,
		logger:      logger,
		workflows:   &WorkflowRepository{q: q, logger: logger},
		states:      &StateRepository{q: q, logger: logger},
		transitions: &TransitionRepository{q: q, logger: logger},
		approvals:   &ApprovalRepository{q: q, logger: logger},
		history:     &HistoryRepository{q: q, logger: logger},
		cursors:     &CursorRepository{q: q},
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository     { return p.workflows }
func (p *Persistence) States() persistence.StateRepository           { return p.states }
func (p *Persistence) Transitions() persistence.TransitionRepository { return p.transitions }
func (p *Persistence) Approvals() persistence.ApprovalRepository     { return p.approvals }
func (p *Persistence) History() persistence.HistoryRepository        { return p.history }
func (p *Persistence) Cursors() persistence.CursorRepository         { return p.cursors }

// InTransaction runs fn against a transaction-scoped Persistence. Nested
// calls join the enclosing transaction.
func (p *Persistence) InTransaction(ctx context.Context, fn func(ctx context.Context, tx persistence.Persistence) error) error {
	if p.db == nil {
		return fn(ctx, p)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	scope := newPersistence(nil, tx, p.logger)

	err = fn(ctx, scope)
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			p.logger.ErrorContext(ctx, "Failed to roll back transaction", "error", rollbackErr)
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if p.db == nil {
		return nil
	}

	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db == nil {
		return nil
	}

	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// translateError maps driver-level constraint violations to the shared
// persistence sentinels.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return persistence.ErrDuplicateCode
	}

	return err
}
