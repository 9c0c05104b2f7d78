package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/residentdesk/facilityflow/pkg/bookings"
	"github.com/residentdesk/facilityflow/pkg/eventbus"
	"github.com/residentdesk/facilityflow/pkg/events"
	"github.com/residentdesk/facilityflow/pkg/models"
)

// automationMutator applies workflow side effects to the booking store and
// announces status changes with their automation origin. Triggered runs and
// ad-hoc runs both go through it.
type automationMutator struct {
	store     *bookings.Store
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func newAutomationMutator(store *bookings.Store, publisher eventbus.EventPublisher, logger *slog.Logger, now func() time.Time) automationMutator {
	return automationMutator{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       now,
	}
}

func (m automationMutator) UpdateBookingStatus(
	ctx context.Context,
	bookingID string,
	newStatus models.BookingStatus,
	updatedBy, note string,
	origin models.MutationOrigin,
) error {
	previous, err := m.store.UpdateStatus(ctx, bookingID, newStatus, updatedBy, note, origin)
	if err != nil {
		return err
	}

	if m.publisher == nil {
		return nil
	}

	booking, err := m.store.BookingByID(ctx, bookingID)
	if err != nil {
		return err
	}

	publishEvent(ctx, m.publisher, m.logger, bookingID, statusChanged(m.now(), booking, previous, newStatus, updatedBy, origin))

	return nil
}

func (m automationMutator) SendNotification(
	ctx context.Context,
	bookingID string,
	channel models.NotificationChannel,
	recipient, message, triggerTag string,
) error {
	return m.store.SendNotification(ctx, bookingID, channel, recipient, message, triggerTag)
}

func statusChanged(
	at time.Time,
	booking *models.Booking,
	previous, status models.BookingStatus,
	updatedBy string,
	origin models.MutationOrigin,
) *events.BookingStatusChanged {
	return &events.BookingStatusChanged{
		BaseEvent: events.NewBaseEvent(newEventID(), events.BookingStatusChangedEvent, at),
		Booking:   booking,
		OldStatus: previous,
		NewStatus: status,
		UpdatedBy: updatedBy,
		Origin:    origin,
	}
}

func publishEvent(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, key string, event eventbus.Event) {
	if publisher == nil {
		return
	}

	err := publisher.Publish(ctx, key, event)
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish booking event",
			"event_type", event.GetType(),
			"booking_id", key,
			"error", err)
	}
}
