package testutil

import (
	"context"
	"sync"

	"github.com/residentdesk/facilityflow/pkg/models"
)

// StatusCall records one UpdateBookingStatus call.
type StatusCall struct {
	BookingID string
	Status    models.BookingStatus
	UpdatedBy string
	Note      string
	Origin    models.MutationOrigin
}

// NotificationCall records one SendNotification call.
type NotificationCall struct {
	BookingID  string
	Channel    models.NotificationChannel
	Recipient  string
	Message    string
	TriggerTag string
}

// RecordingMutator is a BookingMutator that remembers every call.
// StatusErr and NotifyErr, when set, are returned from the matching calls.
type RecordingMutator struct {
	mu            sync.Mutex
	StatusCalls   []StatusCall
	Notifications []NotificationCall
	StatusErr     error
	NotifyErr     error
}

func (m *RecordingMutator) UpdateBookingStatus(
	_ context.Context,
	bookingID string,
	newStatus models.BookingStatus,
	updatedBy, note string,
	origin models.MutationOrigin,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StatusErr != nil {
		return m.StatusErr
	}

	m.StatusCalls = append(m.StatusCalls, StatusCall{
		BookingID: bookingID,
		Status:    newStatus,
		UpdatedBy: updatedBy,
		Note:      note,
		Origin:    origin,
	})

	return nil
}

func (m *RecordingMutator) SendNotification(
	_ context.Context,
	bookingID string,
	channel models.NotificationChannel,
	recipient, message, triggerTag string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.NotifyErr != nil {
		return m.NotifyErr
	}

	m.Notifications = append(m.Notifications, NotificationCall{
		BookingID:  bookingID,
		Channel:    channel,
		Recipient:  recipient,
		Message:    message,
		TriggerTag: triggerTag,
	})

	return nil
}

// Calls returns the total number of recorded side effects.
func (m *RecordingMutator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.StatusCalls) + len(m.Notifications)
}
