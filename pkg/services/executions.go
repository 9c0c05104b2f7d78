package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/residentdesk/facilityflow/pkg/bookings"
	"github.com/residentdesk/facilityflow/pkg/eventbus"
	"github.com/residentdesk/facilityflow/pkg/events"
	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence"
	"github.com/residentdesk/facilityflow/pkg/workflow"
)

// Executions runs workflows on demand and owns execution history. It is the
// protocol.ExecutionSink handed to the trigger manager.
type Executions struct {
	store       executions.Store
	persistence persistence.Persistence
	bookings    *bookings.Store
	engine      *workflow.Engine
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time

	// saving holds a *sync.Mutex per execution id while it is running.
	saving sync.Map
}

// snapshotTimeout bounds a single snapshot save.
const snapshotTimeout = 5 * time.Second

type ExecutionsOption func(*Executions)

// WithExecutionEvents publishes a completed or failed event for every recorded
// execution, and a status-changed event for every status an ad-hoc run sets.
func WithExecutionEvents(publisher eventbus.EventPublisher) ExecutionsOption {
	return func(e *Executions) {
		e.publisher = publisher
	}
}

func NewExecutions(
	store executions.Store,
	persistence persistence.Persistence,
	bookingStore *bookings.Store,
	engine *workflow.Engine,
	logger *slog.Logger,
	opts ...ExecutionsOption,
) *Executions {
	e := &Executions{
		store:       store,
		persistence: persistence,
		bookings:    bookingStore,
		engine:      engine,
		logger:      logger.With("module", "execution_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// OnExecutionCreated stores a finished execution and announces it.
func (e *Executions) OnExecutionCreated(ctx context.Context, execution *models.WorkflowExecution) {
	mu := e.lock(execution.ID)
	err := e.store.Save(ctx, execution)
	mu.Unlock()
	e.saving.Delete(execution.ID)

	if err != nil {
		e.logger.ErrorContext(ctx, "failed to save execution",
			"execution_id", execution.ID,
			"workflow_id", execution.WorkflowID,
			"error", err)
	}

	if e.publisher == nil {
		return
	}

	event := events.ExecutionFinished(newEventID(), execution)
	if event == nil {
		return
	}

	err = e.publisher.Publish(ctx, execution.BookingID, event)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to publish execution event",
			"execution_id", execution.ID,
			"error", err)
	}
}

// ObserveStep stores intermediate snapshots so running executions can be
// polled. Snapshots arriving after the final record was saved are ignored.
func (e *Executions) ObserveStep(execution *models.WorkflowExecution) {
	if execution.Status.IsTerminal() {
		return
	}

	mu := e.lock(execution.ID)
	defer mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	stored, err := e.store.ByID(ctx, execution.ID)
	if err == nil && stored.Status.IsTerminal() {
		e.saving.Delete(execution.ID)

		return
	}

	err = e.store.Save(ctx, execution)
	if err != nil {
		e.logger.Warn("failed to save execution snapshot", "execution_id", execution.ID, "error", err)
	}
}

func (e *Executions) lock(executionID string) *sync.Mutex {
	value, _ := e.saving.LoadOrStore(executionID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()

	return mu
}

// Run executes one workflow against one booking regardless of its triggers.
// Inactive workflows are refused.
func (e *Executions) Run(ctx context.Context, workflowID, bookingID string) (*models.WorkflowExecution, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, NewValidationError("Run", "BOOKING_ID_REQUIRED", "booking id is required", ErrBookingIDRequired)
	}

	wf, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !wf.IsActive {
		return nil, &ServiceError{
			Op:      "Run",
			Code:    "WORKFLOW_INACTIVE",
			Message: fmt.Sprintf("workflow %s is not active", wf.ID),
			Err:     ErrWorkflowInactive,
		}
	}

	booking, err := e.bookings.BookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	mutator := newAutomationMutator(e.bookings, e.publisher, e.logger, e.now)

	execution := e.engine.Execute(ctx, wf, booking, mutator, e.ObserveStep)
	e.OnExecutionCreated(ctx, execution)

	return execution, nil
}

func (e *Executions) ByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.store.ByID(ctx, id)
}

func (e *Executions) List(ctx context.Context, filter executions.Filter) ([]*models.WorkflowExecution, error) {
	list, err := e.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return list, nil
}

// Prune drops finished executions older than retention.
func (e *Executions) Prune(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := e.now().Add(-retention)

	removed, err := e.store.Prune(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("failed to prune executions: %w", err)
	}

	e.logger.InfoContext(ctx, "Pruned execution history", "removed", removed, "cutoff", cutoff)

	return removed, nil
}

// HealthCheck checks the health of the execution store.
func (e *Executions) HealthCheck(ctx context.Context) (string, bool) {
	err := e.store.HealthCheck(ctx)
	if err != nil {
		return "Execution store is unhealthy: " + err.Error(), false
	}

	return "Execution store is healthy", true
}
