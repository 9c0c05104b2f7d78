// Package events defines the domain events published for bookings and workflow executions.
package events

import (
	"time"

	"github.com/residentdesk/facilityflow/pkg/models"
)

type EventType string

// Event is implemented by every published event.
type Event interface {
	GetType() EventType
}

const Topic = "facilityflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Booking events.
	BookingCreatedEvent         EventType = "booking.created"
	BookingStatusChangedEvent   EventType = "booking.status_changed"
	BookingApprovalDecidedEvent EventType = "booking.approval_decided"

	// Workflow execution events.
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(id string, eventType EventType, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: at,
	}
}

type BookingCreated struct {
	BaseEvent

	Booking *models.Booking `json:"booking"`
}

func (e BookingCreated) GetType() EventType {
	return BookingCreatedEvent
}

// BookingStatusChanged is published for every status change. Only changes
// with a human origin run status-changed workflows.
type BookingStatusChanged struct {
	BaseEvent

	Booking   *models.Booking       `json:"booking"`
	OldStatus models.BookingStatus  `json:"old_status"`
	NewStatus models.BookingStatus  `json:"new_status"`
	UpdatedBy string                `json:"updated_by"`
	Origin    models.MutationOrigin `json:"origin"`
}

func (e BookingStatusChanged) GetType() EventType {
	return BookingStatusChangedEvent
}

type BookingApprovalDecided struct {
	BaseEvent

	Booking   *models.Booking         `json:"booking"`
	Decision  models.ApprovalDecision `json:"decision"`
	DecidedBy string                  `json:"decided_by"`
}

func (e BookingApprovalDecided) GetType() EventType {
	return BookingApprovalDecidedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id"`
	BookingID   string        `json:"booking_id"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
}

func (e WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id"`
	BookingID   string        `json:"booking_id"`
	NodeID      string        `json:"node_id,omitempty"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

// ExecutionFinished builds the completed or failed event for a terminal
// execution. It returns nil for executions that are still running.
func ExecutionFinished(id string, execution *models.WorkflowExecution) Event {
	if !execution.Status.IsTerminal() || execution.CompletedAt == nil {
		return nil
	}

	duration := execution.CompletedAt.Sub(execution.StartedAt)

	if execution.Status == models.ExecutionStatusCompleted {
		return &WorkflowExecutionCompleted{
			BaseEvent:   NewBaseEvent(id, WorkflowExecutionCompletedEvent, *execution.CompletedAt),
			ExecutionID: execution.ID,
			WorkflowID:  execution.WorkflowID,
			BookingID:   execution.BookingID,
			Steps:       len(execution.ExecutionLog),
			Duration:    duration,
		}
	}

	failed := &WorkflowExecutionFailed{
		BaseEvent:   NewBaseEvent(id, WorkflowExecutionFailedEvent, *execution.CompletedAt),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		BookingID:   execution.BookingID,
		Error:       execution.Error,
		Duration:    duration,
	}

	if execution.CurrentNodeID != nil {
		failed.NodeID = *execution.CurrentNodeID
	}

	return failed
}
