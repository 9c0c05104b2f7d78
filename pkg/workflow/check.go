package workflow

import (
	"fmt"
	"strings"

	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/template"
)

// CheckNode reports configuration errors a node hits no matter which booking
// it runs against. Condition expressions are only compiled when conditions is
// non-nil.
func CheckNode(node *models.WorkflowNode, conditions *ConditionEvaluator) error {
	data, err := node.Config()
	if err != nil {
		return err
	}

	switch d := data.(type) {
	case models.StatusData:
		if !d.Status.Valid() {
			return fmt.Errorf("%w: %q", models.ErrInvalidStatus, d.Status)
		}
	case models.NotificationData:
		return CheckNotification(d)
	case models.ConditionData:
		if conditions != nil {
			return conditions.Validate(d)
		}
	}

	return nil
}

// CheckNotification rejects unknown channel targets and messages that are
// blank or do not parse.
func CheckNotification(data models.NotificationData) error {
	if len(data.NotificationType.Channels()) == 0 {
		return fmt.Errorf("%w: notification type %q", ErrInvalidNodeConfig, data.NotificationType)
	}

	if strings.TrimSpace(data.Message) == "" {
		return fmt.Errorf("%w: empty notification message", ErrInvalidNodeConfig)
	}

	if err := template.Check(data.Message); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNodeConfig, err)
	}

	return nil
}

// checkNodes returns the first node in authored order that fails CheckNode.
func (e *Engine) checkNodes(workflow *models.Workflow) (*models.WorkflowNode, error) {
	var conditions *ConditionEvaluator
	if e.branchMode == BranchEvaluate {
		conditions = e.conditions
	}

	for _, node := range workflow.Nodes {
		if err := CheckNode(node, conditions); err != nil {
			return node, err
		}
	}

	return nil, nil
}
