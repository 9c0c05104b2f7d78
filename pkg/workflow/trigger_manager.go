package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/otelhelper"
	"github.com/residentdesk/facilityflow/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
)

// TriggerEvent names the booking event that starts workflows.
type TriggerEvent string

const (
	TriggerBookingCreated          TriggerEvent = "booking_created"
	TriggerBookingStatusChanged    TriggerEvent = "booking_status_changed"
	TriggerBookingApprovalDecision TriggerEvent = "booking_approval_decision"
)

// TriggerManager selects the workflows a booking event applies to and runs
// them one after another. Failures are contained per workflow and never
// reach the caller.
type TriggerManager struct {
	engine   *Engine
	logger   *slog.Logger
	observer protocol.StepObserver
}

type TriggerManagerOption func(*TriggerManager)

// WithStepObserver forwards every intermediate snapshot of triggered runs.
func WithStepObserver(observer protocol.StepObserver) TriggerManagerOption {
	return func(tm *TriggerManager) {
		tm.observer = observer
	}
}

func NewTriggerManager(engine *Engine, logger *slog.Logger, opts ...TriggerManagerOption) *TriggerManager {
	tm := &TriggerManager{
		engine: engine,
		logger: logger.With("module", "trigger_manager"),
	}

	for _, opt := range opts {
		opt(tm)
	}

	return tm
}

// Applicable returns the workflows event would start for booking, in the
// order given. For status changes the booking's current status is taken as
// the new status.
func (tm *TriggerManager) Applicable(event TriggerEvent, booking *models.Booking, workflows []*models.Workflow) []*models.Workflow {
	return selectWorkflows(event, booking.Facility, booking.Status, workflows)
}

func (tm *TriggerManager) OnBookingCreated(
	ctx context.Context,
	booking *models.Booking,
	workflows []*models.Workflow,
	mutator protocol.BookingMutator,
	sink protocol.ExecutionSink,
) []*models.WorkflowExecution {
	selected := selectWorkflows(TriggerBookingCreated, booking.Facility, booking.Status, workflows)

	return tm.runAll(ctx, TriggerBookingCreated, booking, selected, mutator, sink)
}

// OnBookingStatusChanged runs the workflows whose condition nodes mention
// newStatus. Callers must not invoke it for changes made by a workflow.
func (tm *TriggerManager) OnBookingStatusChanged(
	ctx context.Context,
	booking *models.Booking,
	oldStatus, newStatus models.BookingStatus,
	workflows []*models.Workflow,
	mutator protocol.BookingMutator,
	sink protocol.ExecutionSink,
) []*models.WorkflowExecution {
	tm.logger.DebugContext(ctx, "Booking status changed",
		"booking_id", booking.ID,
		"old_status", oldStatus,
		"new_status", newStatus)

	selected := selectWorkflows(TriggerBookingStatusChanged, booking.Facility, newStatus, workflows)

	return tm.runAll(ctx, TriggerBookingStatusChanged, booking, selected, mutator, sink)
}

func (tm *TriggerManager) OnBookingApprovalDecision(
	ctx context.Context,
	booking *models.Booking,
	decision models.ApprovalDecision,
	workflows []*models.Workflow,
	mutator protocol.BookingMutator,
	sink protocol.ExecutionSink,
) []*models.WorkflowExecution {
	tm.logger.DebugContext(ctx, "Approval decided", "booking_id", booking.ID, "decision", decision)

	selected := selectWorkflows(TriggerBookingApprovalDecision, booking.Facility, booking.Status, workflows)

	return tm.runAll(ctx, TriggerBookingApprovalDecision, booking, selected, mutator, sink)
}

func selectWorkflows(event TriggerEvent, facility string, newStatus models.BookingStatus, workflows []*models.Workflow) []*models.Workflow {
	selected := make([]*models.Workflow, 0, len(workflows))

	for _, wf := range workflows {
		if wf == nil || !wf.IsActive || !wf.AppliesToFacility(facility) {
			continue
		}

		if event == TriggerBookingStatusChanged && !wf.HasConditionMentioning(string(newStatus)) {
			continue
		}

		selected = append(selected, wf)
	}

	return selected
}

func (tm *TriggerManager) runAll(
	ctx context.Context,
	event TriggerEvent,
	booking *models.Booking,
	workflows []*models.Workflow,
	mutator protocol.BookingMutator,
	sink protocol.ExecutionSink,
) []*models.WorkflowExecution {
	ctx, span := otelhelper.StartSpan(ctx, tm.engine.tracer, "workflow.trigger",
		attribute.String(otelhelper.TriggerEventKey, string(event)),
		attribute.String(otelhelper.BookingIDKey, booking.ID),
		attribute.String(otelhelper.FacilityKey, booking.Facility),
	)
	defer span.End()

	tm.logger.InfoContext(ctx, "Dispatching booking event",
		"event", event,
		"booking_id", booking.ID,
		"facility", booking.Facility,
		"workflows_count", len(workflows))

	executions := make([]*models.WorkflowExecution, 0, len(workflows))

	for _, wf := range workflows {
		execution, err := tm.runOne(ctx, wf, booking, mutator, sink)
		if err != nil {
			tm.logger.ErrorContext(ctx, "Triggered workflow crashed",
				"event", event,
				"workflow_id", wf.ID,
				"booking_id", booking.ID,
				"error", err)

			continue
		}

		executions = append(executions, execution)
	}

	return executions
}

func (tm *TriggerManager) runOne(
	ctx context.Context,
	wf *models.Workflow,
	booking *models.Booking,
	mutator protocol.BookingMutator,
	sink protocol.ExecutionSink,
) (execution *models.WorkflowExecution, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("workflow %s: %v", wf.ID, recovered)
		}
	}()

	execution = tm.engine.Execute(ctx, wf, booking, mutator, tm.observer)

	if execution.Status == models.ExecutionStatusFailed {
		tm.logger.WarnContext(ctx, "Triggered workflow failed",
			"workflow_id", wf.ID,
			"execution_id", execution.ID,
			"error", execution.Error)
	}

	if sink != nil {
		sink.OnExecutionCreated(ctx, execution)
	}

	return execution, nil
}
