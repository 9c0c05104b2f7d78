package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/otelhelper"
	"github.com/residentdesk/facilityflow/pkg/template"
	"go.opentelemetry.io/otel/attribute"
)

// nodeResult is what a node handler hands back to the walk.
type nodeResult struct {
	entry models.ExecutionLogEntry

	// outcome is set by condition nodes evaluated in BranchEvaluate mode.
	outcome *bool
}

// runNode executes one node's side effect. Panics raised by collaborators are
// turned into errors so the run fails instead of crashing the caller.
func (e *Engine) runNode(ctx context.Context, r *run, node *models.WorkflowNode) (result nodeResult, err error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrNodePanicked, recovered)
		}

		if err != nil {
			otelhelper.SetError(span, err)
		}
	}()

	data, err := node.Config()
	if err != nil {
		return nodeResult{}, err
	}

	switch d := data.(type) {
	case models.StartData:
		return e.success(node, "Workflow started", fmt.Sprintf("Workflow %q started for booking %s", r.workflow.Name, r.booking.ID)), nil
	case models.StatusData:
		return e.runStatus(ctx, r, node, d)
	case models.ApprovalData:
		return e.runApproval(node, d), nil
	case models.NotificationData:
		return e.runNotification(ctx, r, node, d)
	case models.ConditionData:
		return e.runCondition(r, node, d)
	case models.EndData:
		return e.success(node, "Workflow completed", "Reached "+d.DisplayLabel()), nil
	default:
		return nodeResult{}, fmt.Errorf("%w: %T", models.ErrUnknownNodeType, data)
	}
}

func (e *Engine) success(node *models.WorkflowNode, action, details string) nodeResult {
	return nodeResult{
		entry: models.ExecutionLogEntry{
			NodeID:    node.ID,
			NodeType:  node.Type,
			Timestamp: e.now(),
			Action:    action,
			Result:    models.LogResultSuccess,
			Details:   details,
		},
	}
}

func (e *Engine) runStatus(ctx context.Context, r *run, node *models.WorkflowNode, data models.StatusData) (nodeResult, error) {
	if !data.Status.Valid() {
		return nodeResult{}, fmt.Errorf("%w: %q", models.ErrInvalidStatus, data.Status)
	}

	previous := r.booking.Status
	note := fmt.Sprintf("Automated by workflow %q", r.workflow.Name)

	err := r.mutator.UpdateBookingStatus(ctx, r.booking.ID, data.Status, models.WorkflowActor, note, models.OriginAutomation)
	if err != nil {
		return nodeResult{}, fmt.Errorf("failed to update booking status: %w", err)
	}

	r.booking.Status = data.Status

	return e.success(node,
		"Changed status to "+string(data.Status),
		fmt.Sprintf("Booking %s moved from %s to %s", r.booking.ID, previous, data.Status),
	), nil
}

// runApproval resolves the approval immediately. The configured timeout is
// reported but not enforced.
func (e *Engine) runApproval(node *models.WorkflowNode, data models.ApprovalData) nodeResult {
	level := data.ApprovalLevel
	if level == "" {
		level = "standard"
	}

	details := fmt.Sprintf("Approval level %s auto-approved", level)
	if data.Timeout > 0 {
		details += fmt.Sprintf("; nominal timeout %dh not enforced", data.Timeout)
	}

	return e.success(node, fmt.Sprintf("Auto-approved (%s)", level), details)
}

func (e *Engine) runNotification(ctx context.Context, r *run, node *models.WorkflowNode, data models.NotificationData) (nodeResult, error) {
	channels := data.NotificationType.Channels()
	if len(channels) == 0 {
		return nodeResult{}, fmt.Errorf("%w: notification type %q", ErrInvalidNodeConfig, data.NotificationType)
	}

	message, err := template.RenderWithBooking(data.Message, r.booking, r.workflow)
	if err != nil {
		return nodeResult{}, fmt.Errorf("%w: %w", ErrInvalidNodeConfig, err)
	}

	if strings.TrimSpace(message) == "" {
		return nodeResult{}, fmt.Errorf("%w: empty notification message", ErrInvalidNodeConfig)
	}

	tag := triggerTag(r.workflow)
	sent := make([]string, 0, len(channels))

	for _, channel := range channels {
		recipient, err := resolveRecipient(r.booking.User, channel)
		if err != nil {
			return nodeResult{}, err
		}

		err = r.mutator.SendNotification(ctx, r.booking.ID, channel, recipient, message, tag)
		if err != nil {
			return nodeResult{}, fmt.Errorf("failed to send %s notification: %w", channel, err)
		}

		sent = append(sent, fmt.Sprintf("%s to %s", channel, recipient))
	}

	return e.success(node,
		fmt.Sprintf("Sent %s notification", data.NotificationType),
		strings.Join(sent, "; ")+": "+message,
	), nil
}

func (e *Engine) runCondition(r *run, node *models.WorkflowNode, data models.ConditionData) (nodeResult, error) {
	if e.branchMode != BranchEvaluate {
		return e.success(node,
			"Checked condition: "+data.Condition,
			"Condition not evaluated; following the first outgoing edge",
		), nil
	}

	outcome, evaluated, err := e.conditions.Evaluate(data, r.booking)
	if err != nil {
		return nodeResult{}, err
	}

	if !evaluated {
		return e.success(node,
			"Checked condition: "+data.Condition,
			"Free-text condition has no expression; following the first outgoing edge",
		), nil
	}

	result := e.success(node,
		"Checked condition: "+data.Condition,
		fmt.Sprintf("Condition evaluated to %t", outcome),
	)
	result.outcome = &outcome

	return result, nil
}

// resolveRecipient picks the address for a channel, falling back to the user's name.
func resolveRecipient(user models.BookingUser, channel models.NotificationChannel) (string, error) {
	var recipient string

	switch channel {
	case models.ChannelEmail:
		recipient = user.Email
	case models.ChannelSMS:
		recipient = user.Phone
	}

	if recipient == "" {
		recipient = user.Name
	}

	if recipient == "" {
		return "", fmt.Errorf("%w: no %s address or name on booking", ErrRecipientMissing, channel)
	}

	return recipient, nil
}

func triggerTag(workflow *models.Workflow) string {
	return "workflow:" + workflow.ID
}
