// Package executions stores workflow execution history.
package executions

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/residentdesk/facilityflow/pkg/models"
)

var (
	ErrExecutionNotFound = errors.New("execution not found")
	ErrInvalidExecution  = errors.New("execution id is required")
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	WorkflowID string
	BookingID  string
	Limit      int
}

// Matches reports whether the execution satisfies the filter's id fields.
func (f Filter) Matches(execution *models.WorkflowExecution) bool {
	if f.WorkflowID != "" && execution.WorkflowID != f.WorkflowID {
		return false
	}

	if f.BookingID != "" && execution.BookingID != f.BookingID {
		return false
	}

	return true
}

// Store keeps executions keyed by id. Saving an existing id overwrites it.
type Store interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	ByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	// List returns matching executions, most recently started first.
	List(ctx context.Context, filter Filter) ([]*models.WorkflowExecution, error)
	// Prune removes terminal executions that completed before cutoff and
	// returns how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Prunable reports whether a stored execution is old enough to be pruned.
func Prunable(execution *models.WorkflowExecution, cutoff time.Time) bool {
	return execution.Status.IsTerminal() &&
		execution.CompletedAt != nil &&
		execution.CompletedAt.Before(cutoff)
}

// SortNewestFirst orders executions by start time, newest first, then by id.
func SortNewestFirst(list []*models.WorkflowExecution) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].ID > list[j].ID
		}

		return list[i].StartedAt.After(list[j].StartedAt)
	})
}
