package models

import (
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a facility booking.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRejected   BookingStatus = "rejected"
)

// BookingStatuses lists every valid booking status.
func BookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusInProgress,
		BookingStatusCompleted,
		BookingStatusCancelled,
		BookingStatusRejected,
	}
}

func (s BookingStatus) Valid() bool {
	for _, status := range BookingStatuses() {
		if s == status {
			return true
		}
	}

	return false
}

// ParseBookingStatus converts a raw string into a BookingStatus.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}

	return status, nil
}

// MutationOrigin tags who caused a booking mutation.
type MutationOrigin string

const (
	OriginHuman      MutationOrigin = "human"
	OriginAutomation MutationOrigin = "automation"
)

// WorkflowActor is the updatedBy identity used for every engine-originated change.
const WorkflowActor = "workflow"

// ApprovalDecision is the outcome of an administrator reviewing a booking.
type ApprovalDecision string

const (
	ApprovalApproved ApprovalDecision = "approved"
	ApprovalRejected ApprovalDecision = "rejected"
)

func (d ApprovalDecision) Valid() bool {
	return d == ApprovalApproved || d == ApprovalRejected
}

// NotificationChannel is a delivery channel for booking notifications.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

// BookingUser is the resident who owns a booking.
type BookingUser struct {
	Name  string `json:"name"            validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// StatusChange is one entry of a booking's status history.
type StatusChange struct {
	From      BookingStatus  `json:"from"`
	To        BookingStatus  `json:"to"`
	UpdatedBy string         `json:"updatedBy"`
	Origin    MutationOrigin `json:"origin"`
	Note      string         `json:"note,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notification records a message addressed to a booking's user. Nothing is delivered.
type Notification struct {
	Channel    NotificationChannel `json:"channel"`
	Recipient  string              `json:"recipient"`
	Message    string              `json:"message"`
	TriggerTag string              `json:"triggerTag"`
	SentAt     time.Time           `json:"sentAt"`
}

// Booking is a resident's reservation of a facility or service.
type Booking struct {
	ID            string         `json:"id"`
	Facility      string         `json:"facility"  validate:"required"`
	Status        BookingStatus  `json:"status"`
	User          BookingUser    `json:"user"`
	StartTime     time.Time      `json:"startTime"`
	EndTime       time.Time      `json:"endTime"`
	StatusHistory []StatusChange `json:"statusHistory,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// DurationHours returns the booked duration, or zero when the window is unset.
func (b *Booking) DurationHours() float64 {
	if b.StartTime.IsZero() || b.EndTime.IsZero() || b.EndTime.Before(b.StartTime) {
		return 0
	}

	return b.EndTime.Sub(b.StartTime).Hours()
}

// Clone returns a deep copy of the booking.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}

	clone := *b
	clone.StatusHistory = append([]StatusChange(nil), b.StatusHistory...)
	clone.Notifications = append([]Notification(nil), b.Notifications...)

	return &clone
}
