package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/otelhelper"
	"github.com/residentdesk/facilityflow/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxIterations caps how many nodes a single run may visit.
const DefaultMaxIterations = 100

// BranchMode selects how the engine leaves a node with several outgoing edges.
type BranchMode string

const (
	// BranchFirstEdge follows the first authored edge of every node. Condition
	// nodes are logged but never evaluated.
	BranchFirstEdge BranchMode = "first-edge"

	// BranchEvaluate evaluates condition nodes against the booking and picks
	// the edge matching the outcome.
	BranchEvaluate BranchMode = "evaluate"
)

// ParseBranchMode converts a flag value into a BranchMode.
func ParseBranchMode(raw string) (BranchMode, error) {
	switch BranchMode(raw) {
	case BranchFirstEdge, "":
		return BranchFirstEdge, nil
	case BranchEvaluate:
		return BranchEvaluate, nil
	default:
		return "", fmt.Errorf("unknown branch mode %q", raw)
	}
}

// Engine interprets workflow graphs against bookings.
type Engine struct {
	logger        *slog.Logger
	tracer        trace.Tracer
	conditions    *ConditionEvaluator
	maxIterations int
	stepDelay     time.Duration
	branchMode    BranchMode
	now           func() time.Time
	newID         func() string
}

type Option func(*Engine)

func WithMaxIterations(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.maxIterations = limit
		}
	}
}

// WithStepDelay pauses between nodes so a live view can follow along.
func WithStepDelay(delay time.Duration) Option {
	return func(e *Engine) {
		if delay > 0 {
			e.stepDelay = delay
		}
	}
}

func WithBranchMode(mode BranchMode) Option {
	return func(e *Engine) {
		e.branchMode = mode
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		logger:        logger.With("module", "workflow_engine"),
		tracer:        otelhelper.NoopTracer(),
		conditions:    NewConditionEvaluator(),
		maxIterations: DefaultMaxIterations,
		branchMode:    BranchFirstEdge,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         generateExecutionID,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// BranchMode reports the engine's configured branching behaviour.
func (e *Engine) BranchMode() BranchMode {
	return e.branchMode
}

// run carries the state of one execution.
type run struct {
	workflow  *models.Workflow
	booking   *models.Booking
	mutator   protocol.BookingMutator
	execution *models.WorkflowExecution
	observer  *observerQueue
}

// Execute walks workflow from its start node against booking and returns the
// finished execution. It never returns a running execution: structural
// problems, node errors, cancellation and the iteration cap all end in
// failed, everything else in completed. Side effects already applied are not
// rolled back. onStep may be nil; it is never waited on.
func (e *Engine) Execute(
	ctx context.Context,
	workflow *models.Workflow,
	booking *models.Booking,
	mutator protocol.BookingMutator,
	onStep protocol.StepObserver,
) *models.WorkflowExecution {
	execution := models.NewExecution(e.newID(), workflow.ID, workflow.Name, booking.ID, e.now())

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"booking_id", booking.ID,
		"execution_id", execution.ID,
	)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.BookingIDKey, booking.ID),
		attribute.String(otelhelper.FacilityKey, booking.Facility),
	)
	defer span.End()

	observer := newObserverQueue(onStep, logger)
	defer observer.close()

	r := &run{
		workflow:  workflow,
		booking:   booking.Clone(),
		mutator:   mutator,
		execution: execution,
		observer:  observer,
	}

	start, err := e.prepare(workflow)
	if err != nil {
		logger.WarnContext(ctx, "Rejected malformed workflow", "error", err)
		otelhelper.SetError(span, err)

		startID := ""
		if start != nil {
			startID = start.ID
		}

		e.fail(r, startID, models.NodeTypeStart, "Workflow rejected", err)

		return execution
	}

	bad, err := e.checkNodes(workflow)
	if err != nil {
		logger.WarnContext(ctx, "Rejected misconfigured node", "node_id", bad.ID, "node_type", bad.Type, "error", err)
		otelhelper.SetError(span, err)

		r.execution.Enter(bad.ID)
		e.fail(r, bad.ID, bad.Type, bad.Label()+" failed", fmt.Errorf("node %s: %w", bad.ID, err))

		return execution
	}

	logger.InfoContext(ctx, "Starting workflow execution", "branch_mode", e.branchMode)

	e.walk(ctx, r, start, logger)

	if execution.Status == models.ExecutionStatusFailed {
		otelhelper.SetError(span, errors.New(execution.Error))
		logger.WarnContext(ctx, "Workflow execution failed", "error", execution.Error)
	} else {
		logger.InfoContext(ctx, "Workflow execution completed", "steps", len(execution.ExecutionLog))
	}

	return execution
}

// prepare validates the graph before any side effect happens.
func (e *Engine) prepare(workflow *models.Workflow) (*models.WorkflowNode, error) {
	if err := workflow.Validate(); err != nil {
		start, _ := workflow.StartNode()

		return start, err
	}

	return workflow.StartNode()
}

func (e *Engine) walk(ctx context.Context, r *run, start *models.WorkflowNode, logger *slog.Logger) {
	current := start

	for iteration := 1; ; iteration++ {
		if iteration > e.maxIterations {
			err := fmt.Errorf("%w: more than %d steps", ErrIterationLimit, e.maxIterations)
			e.fail(r, current.ID, current.Type, "Iteration limit exceeded", err)

			return
		}

		if ctx.Err() != nil {
			err := fmt.Errorf("%w: %w", ErrExecutionCancelled, context.Cause(ctx))
			e.fail(r, current.ID, current.Type, "Execution cancelled", err)

			return
		}

		r.execution.Enter(current.ID)

		result, err := e.runNode(ctx, r, current)
		if err != nil {
			logger.ErrorContext(ctx, "Node failed", "node_id", current.ID, "node_type", current.Type, "error", err)
			e.fail(r, current.ID, current.Type, current.Label()+" failed", fmt.Errorf("node %s: %w", current.ID, err))

			return
		}

		r.execution.Append(result.entry)
		logger.DebugContext(ctx, "Node executed", "node_id", current.ID, "node_type", current.Type, "action", result.entry.Action)

		if current.Type == models.NodeTypeEnd {
			r.execution.Complete(e.now())
			r.observer.publish(r.execution.Snapshot())

			return
		}

		r.observer.publish(r.execution.Snapshot())

		next, ok, err := e.next(r, current, result)
		if err != nil {
			e.fail(r, current.ID, current.Type, "Traversal failed", err)

			return
		}

		if !ok {
			r.execution.Append(models.ExecutionLogEntry{
				NodeID:    current.ID,
				NodeType:  current.Type,
				Timestamp: e.now(),
				Action:    "Workflow completed",
				Result:    models.LogResultSuccess,
				Details:   "No outgoing edge from " + current.Label(),
			})
			r.execution.Complete(e.now())
			r.observer.publish(r.execution.Snapshot())

			return
		}

		e.pause(ctx)

		current = next
	}
}

// next picks the node to visit after current.
func (e *Engine) next(r *run, current *models.WorkflowNode, result nodeResult) (*models.WorkflowNode, bool, error) {
	edge, ok := e.selectEdge(r.workflow, current, result)
	if !ok {
		return nil, false, nil
	}

	node, found := r.workflow.NodeByID(edge.Target)
	if !found {
		return nil, false, fmt.Errorf("%w: edge %s target %s", models.ErrDanglingEdge, edge.ID, edge.Target)
	}

	return node, true, nil
}

func (e *Engine) selectEdge(workflow *models.Workflow, current *models.WorkflowNode, result nodeResult) (*models.WorkflowEdge, bool) {
	if e.branchMode != BranchEvaluate || result.outcome == nil {
		return workflow.FirstOutgoingEdge(current.ID)
	}

	return selectBranch(workflow.OutgoingEdges(current.ID), *result.outcome)
}

func (e *Engine) pause(ctx context.Context) {
	if e.stepDelay <= 0 {
		return
	}

	timer := time.NewTimer(e.stepDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (e *Engine) fail(r *run, nodeID string, nodeType models.NodeType, action string, err error) {
	r.execution.Append(models.ExecutionLogEntry{
		NodeID:    nodeID,
		NodeType:  nodeType,
		Timestamp: e.now(),
		Action:    action,
		Result:    models.LogResultFailure,
		Details:   err.Error(),
	})
	r.execution.Fail(e.now(), err)
	r.observer.publish(r.execution.Snapshot())
}

// generateExecutionID generates a unique execution ID
func generateExecutionID() string {
	return "exec-" + uuid.New().String()
}
