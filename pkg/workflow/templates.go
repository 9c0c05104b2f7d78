package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/residentdesk/facilityflow/pkg/models"
)

// Template is a prebuilt workflow shape offered to authors.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	build func() ([]*models.WorkflowNode, []*models.WorkflowEdge)
}

// Instantiate returns a new, inactive workflow built from the template.
func (t Template) Instantiate(createdBy string, now time.Time) *models.Workflow {
	nodes, edges := t.build()

	return &models.Workflow{
		ID:                 "wf-" + uuid.New().String(),
		Name:               t.Name,
		Description:        t.Description,
		IsActive:           false,
		AssignedFacilities: []string{},
		Nodes:              nodes,
		Edges:              edges,
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

var templates = []Template{
	{
		ID:          "simple-approval",
		Name:        "Simple Approval",
		Description: "Acknowledge the request, approve it, confirm the booking and tell the resident.",
		build:       simpleApproval,
	},
	{
		ID:          "auto-confirm",
		Name:        "Auto Confirm",
		Description: "Confirm every booking immediately and notify the resident.",
		build:       autoConfirm,
	},
	{
		ID:          "duration-check",
		Name:        "Duration Check",
		Description: "Send long bookings through approval and confirm short ones straight away.",
		build:       durationCheck,
	},
}

// Templates lists the built-in templates.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)

	return out
}

func TemplateByID(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}

	return Template{}, false
}

func node(id string, data models.NodeData, x, y float64) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:       id,
		Type:     data.NodeType(),
		Data:     data,
		Position: models.Position{X: x, Y: y},
	}
}

func edge(source, target, label string) *models.WorkflowEdge {
	return &models.WorkflowEdge{
		ID:     "e-" + source + "-" + target,
		Source: source,
		Target: target,
		Label:  label,
	}
}

func simpleApproval() ([]*models.WorkflowNode, []*models.WorkflowEdge) {
	nodes := []*models.WorkflowNode{
		node("start", models.StartData{Label: "Booking Created"}, 250, 0),
		node("notify-received", models.NotificationData{
			Label:            "Notify Resident",
			NotificationType: models.NotifyEmail,
			Message:          "Hi {{userName}}, we received your booking for {{facility}}.",
		}, 250, 100),
		node("approval", models.ApprovalData{Label: "Manager Approval", ApprovalLevel: "manager", Timeout: 24}, 250, 200),
		node("confirm", models.StatusData{Label: "Confirm Booking", Status: models.BookingStatusConfirmed}, 250, 300),
		node("notify-confirmed", models.NotificationData{
			Label:            "Send Confirmation",
			NotificationType: models.NotifyEmail,
			Message:          "Your booking {{bookingId}} for {{facility}} is {{status}}.",
		}, 250, 400),
		node("end", models.EndData{Label: "Done"}, 250, 500),
	}

	edges := []*models.WorkflowEdge{
		edge("start", "notify-received", ""),
		edge("notify-received", "approval", ""),
		edge("approval", "confirm", ""),
		edge("confirm", "notify-confirmed", ""),
		edge("notify-confirmed", "end", ""),
	}

	return nodes, edges
}

func autoConfirm() ([]*models.WorkflowNode, []*models.WorkflowEdge) {
	nodes := []*models.WorkflowNode{
		node("start", models.StartData{Label: "Booking Created"}, 250, 0),
		node("confirm", models.StatusData{Label: "Confirm Booking", Status: models.BookingStatusConfirmed}, 250, 100),
		node("notify", models.NotificationData{
			Label:            "Send Confirmation",
			NotificationType: models.NotifyEmail,
			Message:          "Your booking for {{facility}} is confirmed.",
		}, 250, 200),
		node("end", models.EndData{}, 250, 300),
	}

	edges := []*models.WorkflowEdge{
		edge("start", "confirm", ""),
		edge("confirm", "notify", ""),
		edge("notify", "end", ""),
	}

	return nodes, edges
}

// durationCheck lists the long branch first so the first-edge walk sends
// every booking through approval.
func durationCheck() ([]*models.WorkflowNode, []*models.WorkflowEdge) {
	nodes := []*models.WorkflowNode{
		node("start", models.StartData{Label: "Booking Created"}, 250, 0),
		node("check-duration", models.ConditionData{
			Label:     "Longer than 4 hours?",
			Condition: "duration > 4 hours",
			Field:     "durationHours",
			Operator:  "greater_than",
			Value:     4,
		}, 250, 100),
		node("approval", models.ApprovalData{Label: "Manager Approval", ApprovalLevel: "manager", Timeout: 48}, 100, 200),
		node("notify-review", models.NotificationData{
			Label:            "Notify Review",
			NotificationType: models.NotifyEmail,
			Message:          "Your long booking for {{facility}} has been reviewed.",
		}, 100, 300),
		node("confirm", models.StatusData{Label: "Confirm Booking", Status: models.BookingStatusConfirmed}, 400, 200),
		node("end", models.EndData{}, 250, 400),
	}

	edges := []*models.WorkflowEdge{
		edge("start", "check-duration", ""),
		edge("check-duration", "approval", "Long"),
		edge("check-duration", "confirm", "Short"),
		edge("approval", "notify-review", ""),
		edge("notify-review", "end", ""),
		edge("confirm", "end", ""),
	}

	return nodes, edges
}
