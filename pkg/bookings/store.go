// Package bookings holds the in-memory booking records that workflows act on.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/residentdesk/facilityflow/pkg/models"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingExists   = errors.New("booking already exists")
)

// Store is an in-memory booking store. Writes are last-writer-wins.
type Store struct {
	mu       sync.RWMutex
	bookings map[string]*models.Booking
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		bookings: make(map[string]*models.Booking),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new booking. Missing ids are generated and a missing
// status defaults to pending. The stored copy is returned.
func (s *Store) Create(_ context.Context, booking *models.Booking) (*models.Booking, error) {
	stored := booking.Clone()

	if stored.ID == "" {
		stored.ID = "BK-" + strings.ToUpper(uuid.New().String()[:8])
	}

	if stored.Status == "" {
		stored.Status = models.BookingStatusPending
	}

	if !stored.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, stored.Status)
	}

	now := s.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[stored.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrBookingExists, stored.ID)
	}

	s.bookings[stored.ID] = stored

	return stored.Clone(), nil
}

// BookingByID returns a copy of the booking.
func (s *Store) BookingByID(_ context.Context, bookingID string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, exists := s.bookings[bookingID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}

	return booking.Clone(), nil
}

// List returns every booking, newest first.
func (s *Store) List(_ context.Context) []*models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Booking, 0, len(s.bookings))
	for _, booking := range s.bookings {
		result = append(result, booking.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}

		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result
}

// UpdateStatus moves a booking to newStatus and records who did it.
// It returns the status the booking had before the change.
func (s *Store) UpdateStatus(
	_ context.Context,
	bookingID string,
	newStatus models.BookingStatus,
	updatedBy, note string,
	origin models.MutationOrigin,
) (models.BookingStatus, error) {
	if !newStatus.Valid() {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidStatus, newStatus)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	booking, exists := s.bookings[bookingID]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}

	now := s.now()
	previous := booking.Status

	booking.StatusHistory = append(booking.StatusHistory, models.StatusChange{
		From:      previous,
		To:        newStatus,
		UpdatedBy: updatedBy,
		Origin:    origin,
		Note:      note,
		Timestamp: now,
	})
	booking.Status = newStatus
	booking.UpdatedAt = now

	return previous, nil
}

// UpdateBookingStatus implements protocol.BookingMutator.
func (s *Store) UpdateBookingStatus(
	ctx context.Context,
	bookingID string,
	newStatus models.BookingStatus,
	updatedBy, note string,
	origin models.MutationOrigin,
) error {
	_, err := s.UpdateStatus(ctx, bookingID, newStatus, updatedBy, note, origin)

	return err
}

// SendNotification records a notification on the booking. Nothing leaves the process.
func (s *Store) SendNotification(
	_ context.Context,
	bookingID string,
	channel models.NotificationChannel,
	recipient, message, triggerTag string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, exists := s.bookings[bookingID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}

	booking.Notifications = append(booking.Notifications, models.Notification{
		Channel:    channel,
		Recipient:  recipient,
		Message:    message,
		TriggerTag: triggerTag,
		SentAt:     s.now(),
	})

	return nil
}
