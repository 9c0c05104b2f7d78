// Package persistence provides the storage abstraction for workflow definitions.
package persistence

import (
	"context"

	"github.com/residentdesk/facilityflow/pkg/models"
)

type Persistence interface {
	// Workflows returns every stored workflow ordered by creation time.
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
