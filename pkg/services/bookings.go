package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/residentdesk/facilityflow/pkg/bookings"
	"github.com/residentdesk/facilityflow/pkg/eventbus"
	"github.com/residentdesk/facilityflow/pkg/events"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence"
	"github.com/residentdesk/facilityflow/pkg/protocol"
	"github.com/residentdesk/facilityflow/pkg/workflow"
)

// BookingResult is a booking after an action together with the executions
// the action triggered inline.
type BookingResult struct {
	Booking    *models.Booking             `json:"booking"`
	Executions []*models.WorkflowExecution `json:"executions"`
}

// Bookings performs booking actions and dispatches the matching workflow
// triggers, either inline or from the event bus.
type Bookings struct {
	store         *bookings.Store
	persistence   persistence.Persistence
	triggers      *workflow.TriggerManager
	sink          protocol.ExecutionSink
	publisher     eventbus.EventPublisher
	asyncTriggers bool
	logger        *slog.Logger
	now           func() time.Time
}

type BookingsOption func(*Bookings)

// WithBookingEvents publishes a domain event for every booking action.
func WithBookingEvents(publisher eventbus.EventPublisher) BookingsOption {
	return func(b *Bookings) {
		b.publisher = publisher
	}
}

// WithAsyncTriggers leaves trigger dispatch to the handlers registered by
// RegisterEventHandlers instead of running workflows inside the action.
func WithAsyncTriggers() BookingsOption {
	return func(b *Bookings) {
		b.asyncTriggers = true
	}
}

func NewBookings(
	store *bookings.Store,
	persistence persistence.Persistence,
	triggers *workflow.TriggerManager,
	sink protocol.ExecutionSink,
	logger *slog.Logger,
	opts ...BookingsOption,
) *Bookings {
	b := &Bookings{
		store:       store,
		persistence: persistence,
		triggers:    triggers,
		sink:        sink,
		logger:      logger.With("module", "booking_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *Bookings) FetchByID(ctx context.Context, id string) (*models.Booking, error) {
	return b.store.BookingByID(ctx, id)
}

func (b *Bookings) List(ctx context.Context) []*models.Booking {
	return b.store.List(ctx)
}

// Create stores a booking and runs the booking-created workflows.
func (b *Bookings) Create(ctx context.Context, booking *models.Booking) (*BookingResult, error) {
	if booking == nil {
		return nil, ErrInvalidRequest
	}

	booking.Facility = strings.TrimSpace(booking.Facility)
	if booking.Facility == "" {
		return nil, NewValidationError("Create", "FACILITY_REQUIRED", "facility is required", ErrInvalidRequest)
	}

	if strings.TrimSpace(booking.User.Name) == "" {
		return nil, NewValidationError("Create", "USER_REQUIRED", "user name is required", ErrInvalidRequest)
	}

	created, err := b.store.Create(ctx, booking)
	if err != nil {
		return nil, err
	}

	b.logger.InfoContext(ctx, "Booking created", "booking_id", created.ID, "facility", created.Facility)

	b.publish(ctx, created.ID, &events.BookingCreated{
		BaseEvent: events.NewBaseEvent(newEventID(), events.BookingCreatedEvent, b.now()),
		Booking:   created,
	})

	var triggered []*models.WorkflowExecution
	if !b.asyncTriggers {
		triggered = b.triggers.OnBookingCreated(ctx, created, b.workflows(ctx), b.mutator(), b.sink)
	}

	return b.result(ctx, created.ID, triggered)
}

// ChangeStatus moves a booking to a new status. Changes made under the
// workflow actor are recorded as automation and never trigger workflows.
func (b *Bookings) ChangeStatus(ctx context.Context, id, rawStatus, updatedBy, note string) (*BookingResult, error) {
	status, err := models.ParseBookingStatus(rawStatus)
	if err != nil {
		return nil, NewValidationError("ChangeStatus", "INVALID_STATUS", err.Error(), err)
	}

	origin := models.OriginHuman
	if updatedBy == models.WorkflowActor {
		origin = models.OriginAutomation
	}

	previous, err := b.store.UpdateStatus(ctx, id, status, updatedBy, note, origin)
	if err != nil {
		return nil, err
	}

	booking, err := b.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	b.publishStatusChanged(ctx, booking, previous, status, updatedBy, origin)

	var triggered []*models.WorkflowExecution
	if !b.asyncTriggers && origin == models.OriginHuman {
		triggered = b.triggers.OnBookingStatusChanged(ctx, booking, previous, status, b.workflows(ctx), b.mutator(), b.sink)
	}

	return b.result(ctx, id, triggered)
}

// DecideApproval records an administrator's decision: approved bookings are
// confirmed and rejected ones rejected. Every active workflow assigned to the
// booking's facility runs, as for the other booking actions.
func (b *Bookings) DecideApproval(ctx context.Context, id string, decision models.ApprovalDecision, decidedBy, note string) (*BookingResult, error) {
	if !decision.Valid() {
		return nil, NewValidationError("DecideApproval", "INVALID_DECISION",
			fmt.Sprintf("decision must be %q or %q", models.ApprovalApproved, models.ApprovalRejected), ErrInvalidDecision)
	}

	status := models.BookingStatusConfirmed
	if decision == models.ApprovalRejected {
		status = models.BookingStatusRejected
	}

	_, err := b.store.UpdateStatus(ctx, id, status, decidedBy, note, models.OriginHuman)
	if err != nil {
		return nil, err
	}

	booking, err := b.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	b.publish(ctx, id, &events.BookingApprovalDecided{
		BaseEvent: events.NewBaseEvent(newEventID(), events.BookingApprovalDecidedEvent, b.now()),
		Booking:   booking,
		Decision:  decision,
		DecidedBy: decidedBy,
	})

	var triggered []*models.WorkflowExecution
	if !b.asyncTriggers {
		triggered = b.triggers.OnBookingApprovalDecision(ctx, booking, decision, b.workflows(ctx), b.mutator(), b.sink)
	}

	return b.result(ctx, id, triggered)
}

// RegisterEventHandlers subscribes trigger dispatch to booking events.
func (b *Bookings) RegisterEventHandlers(subscriber eventbus.EventSubscriber) error {
	err := subscriber.Handle(events.BookingCreatedEvent, func(ctx context.Context, event any) error {
		created := event.(*events.BookingCreated)
		b.triggers.OnBookingCreated(ctx, created.Booking, b.workflows(ctx), b.mutator(), b.sink)

		return nil
	})
	if err != nil {
		return err
	}

	err = subscriber.Handle(events.BookingStatusChangedEvent, func(ctx context.Context, event any) error {
		changed := event.(*events.BookingStatusChanged)
		if changed.Origin != models.OriginHuman {
			return nil
		}

		b.triggers.OnBookingStatusChanged(ctx, changed.Booking, changed.OldStatus, changed.NewStatus,
			b.workflows(ctx), b.mutator(), b.sink)

		return nil
	})
	if err != nil {
		return err
	}

	return subscriber.Handle(events.BookingApprovalDecidedEvent, func(ctx context.Context, event any) error {
		decided := event.(*events.BookingApprovalDecided)
		b.triggers.OnBookingApprovalDecision(ctx, decided.Booking, decided.Decision, b.workflows(ctx), b.mutator(), b.sink)

		return nil
	})
}

// workflows loads trigger candidates. A load failure runs nothing rather
// than failing the booking action.
func (b *Bookings) workflows(ctx context.Context) []*models.Workflow {
	workflows, err := b.persistence.Workflows(ctx)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to load workflows for triggers", "error", err)

		return nil
	}

	return workflows
}

func (b *Bookings) result(ctx context.Context, id string, triggered []*models.WorkflowExecution) (*BookingResult, error) {
	booking, err := b.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if triggered == nil {
		triggered = []*models.WorkflowExecution{}
	}

	return &BookingResult{Booking: booking, Executions: triggered}, nil
}

func (b *Bookings) publish(ctx context.Context, key string, event eventbus.Event) {
	publishEvent(ctx, b.publisher, b.logger, key, event)
}

func (b *Bookings) publishStatusChanged(
	ctx context.Context,
	booking *models.Booking,
	previous, status models.BookingStatus,
	updatedBy string,
	origin models.MutationOrigin,
) {
	b.publish(ctx, booking.ID, statusChanged(b.now(), booking, previous, status, updatedBy, origin))
}

func (b *Bookings) mutator() protocol.BookingMutator {
	return newAutomationMutator(b.store, b.publisher, b.logger, b.now)
}

func newEventID() string {
	return "evt-" + uuid.New().String()
}
