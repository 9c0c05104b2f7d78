// Package protocol defines the contracts between the workflow engine and the booking application.
package protocol

import (
	"context"

	"github.com/residentdesk/facilityflow/pkg/models"
)

// BookingMutator applies workflow side effects to bookings.
type BookingMutator interface {
	// UpdateBookingStatus changes a booking's status and appends a status
	// history entry. Automated callers pass models.WorkflowActor and
	// models.OriginAutomation.
	UpdateBookingStatus(
		ctx context.Context,
		bookingID string,
		newStatus models.BookingStatus,
		updatedBy string,
		note string,
		origin models.MutationOrigin,
	) error

	// SendNotification records a notification against a booking.
	SendNotification(
		ctx context.Context,
		bookingID string,
		channel models.NotificationChannel,
		recipient string,
		message string,
		triggerTag string,
	) error
}

// BookingReader fetches bookings by id.
type BookingReader interface {
	BookingByID(ctx context.Context, bookingID string) (*models.Booking, error)
}

// ExecutionSink receives finished executions for storage or history.
type ExecutionSink interface {
	OnExecutionCreated(ctx context.Context, execution *models.WorkflowExecution)
}

// ExecutionSinkFunc adapts a function to ExecutionSink.
type ExecutionSinkFunc func(ctx context.Context, execution *models.WorkflowExecution)

func (f ExecutionSinkFunc) OnExecutionCreated(ctx context.Context, execution *models.WorkflowExecution) {
	f(ctx, execution)
}

// StepObserver receives a snapshot of an execution after every node. It runs
// on its own goroutine and can still be called after Execute has returned.
type StepObserver func(execution *models.WorkflowExecution)
