// Package memory provides an in-process execution store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/models"
)

// Store keeps executions in a map guarded by a RWMutex. Entries are copied
// on the way in and out.
type Store struct {
	mu         sync.RWMutex
	executions map[string]*models.WorkflowExecution
}

func NewStore() *Store {
	return &Store{
		executions: make(map[string]*models.WorkflowExecution),
	}
}

func (s *Store) Save(_ context.Context, execution *models.WorkflowExecution) error {
	if execution == nil || execution.ID == "" {
		return executions.ErrInvalidExecution
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.executions[execution.ID] = execution.Snapshot()

	return nil
}

func (s *Store) ByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	execution, exists := s.executions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", executions.ErrExecutionNotFound, id)
	}

	return execution.Snapshot(), nil
}

func (s *Store) List(_ context.Context, filter executions.Filter) ([]*models.WorkflowExecution, error) {
	s.mu.RLock()

	result := make([]*models.WorkflowExecution, 0)

	for _, execution := range s.executions {
		if filter.Matches(execution) {
			result = append(result, execution.Snapshot())
		}
	}

	s.mu.RUnlock()

	executions.SortNewestFirst(result)

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

func (s *Store) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for id, execution := range s.executions {
		if executions.Prunable(execution, cutoff) {
			delete(s.executions, id)
			removed++
		}
	}

	return removed, nil
}

func (s *Store) HealthCheck(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
