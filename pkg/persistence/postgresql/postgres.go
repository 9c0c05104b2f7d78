// Package postgresql stores workflow definitions in PostgreSQL. Nodes and edges
// live in their own tables and the schema is migrated on open.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence/sqlbase"
)

// Persistence is the persistence.Persistence backed by a PostgreSQL database.
type Persistence struct {
	db        *sql.DB
	logger    *slog.Logger
	workflows *WorkflowRepository
}

// NewPersistence opens databaseURL, checks the connection and brings the
// workflow schema up to date. The database is closed again on any failure.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open workflow database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("workflow database unreachable: %w", err)
	}

	err = sqlbase.NewMigrationManager(logger, db, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to migrate workflow schema: %w", err)
	}

	logger.InfoContext(ctx, "Workflow database ready")

	return &Persistence{
		db:        db,
		logger:    logger,
		workflows: NewWorkflowRepository(db, logger.With("module", "postgres_workflows")),
	}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db == nil {
		return nil
	}

	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close workflow database: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("workflow database unreachable: %w", err)
	}

	return nil
}

// Workflows lists every workflow that has not been deleted.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return p.workflows.GetAll(ctx)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflows.GetByID(ctx, id)
}

// SaveWorkflow upserts the workflow and replaces its nodes and edges.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflows.Save(ctx, workflow)
}

// DeleteWorkflow soft deletes the workflow; it disappears from Workflows and
// WorkflowByID.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	return p.workflows.Delete(ctx, id)
}
