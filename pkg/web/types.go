// Package web provides HTTP request and response types for the booking workflow API.
package web

import (
	"time"

	"github.com/residentdesk/facilityflow/pkg/models"
)

// RunWorkflowRequest runs one workflow against one booking.
type RunWorkflowRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
}

// SetActiveRequest toggles whether triggers consider a workflow.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// CreateFromTemplateRequest instantiates a template.
type CreateFromTemplateRequest struct {
	CreatedBy string `json:"createdBy"`
}

type BookingUserRequest struct {
	Name  string `json:"name"            validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// CreateBookingRequest represents the request body for creating a booking.
// A missing id is generated and a missing status defaults to pending.
type CreateBookingRequest struct {
	ID        string             `json:"id,omitempty"`
	Facility  string             `json:"facility"         validate:"required"`
	Status    string             `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed in-progress completed cancelled rejected"`
	User      BookingUserRequest `json:"user"             validate:"required"`
	StartTime time.Time          `json:"startTime"`
	EndTime   time.Time          `json:"endTime"          validate:"omitempty,gtefield=StartTime"`
}

func (r CreateBookingRequest) Booking() *models.Booking {
	return &models.Booking{
		ID:       r.ID,
		Facility: r.Facility,
		Status:   models.BookingStatus(r.Status),
		User: models.BookingUser{
			Name:  r.User.Name,
			Email: r.User.Email,
			Phone: r.User.Phone,
		},
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

// ChangeStatusRequest represents a human status change.
type ChangeStatusRequest struct {
	Status    string `json:"status"    validate:"required"`
	UpdatedBy string `json:"updatedBy" validate:"required"`
	Note      string `json:"note,omitempty"`
}

// ApprovalDecisionRequest records an administrator's approval decision.
type ApprovalDecisionRequest struct {
	Decision  string `json:"decision"  validate:"required,oneof=approved rejected"`
	DecidedBy string `json:"decidedBy" validate:"required"`
	Note      string `json:"note,omitempty"`
}
