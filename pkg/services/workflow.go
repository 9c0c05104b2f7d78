package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence"
	"github.com/residentdesk/facilityflow/pkg/workflow"
)

type Workflow struct {
	persistence persistence.Persistence
	conditions  *workflow.ConditionEvaluator
	logger      *slog.Logger
	now         func() time.Time
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		conditions:  workflow.NewConditionEvaluator(),
		logger:      logger.With("module", "workflow_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every stored workflow.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// Create validates and stores a new workflow. A missing id is generated.
func (w *Workflow) Create(ctx context.Context, wf *models.Workflow) (*models.Workflow, error) {
	err := w.validate("Create", wf)
	if err != nil {
		return nil, err
	}

	if wf.ID == "" {
		wf.ID = "wf-" + uuid.New().String()
	}

	now := w.now()
	wf.CreatedAt = now
	wf.UpdatedAt = now

	if wf.AssignedFacilities == nil {
		wf.AssignedFacilities = []string{}
	}

	err = w.persistence.SaveWorkflow(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", wf.ID, "active", wf.IsActive)

	return wf, nil
}

// Update replaces an existing workflow. Creation metadata is kept.
func (w *Workflow) Update(ctx context.Context, workflowID string, wf *models.Workflow) (*models.Workflow, error) {
	err := w.validate("Update", wf)
	if err != nil {
		return nil, err
	}

	existing, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	wf.ID = workflowID
	wf.CreatedAt = existing.CreatedAt
	wf.UpdatedAt = w.now()

	if wf.CreatedBy == "" {
		wf.CreatedBy = existing.CreatedBy
	}

	if wf.AssignedFacilities == nil {
		wf.AssignedFacilities = []string{}
	}

	err = w.persistence.SaveWorkflow(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return wf, nil
}

// SetActive toggles whether triggers consider the workflow.
func (w *Workflow) SetActive(ctx context.Context, workflowID string, active bool) (*models.Workflow, error) {
	existing, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if active {
		err := w.validate("SetActive", existing)
		if err != nil {
			return nil, err
		}
	}

	existing.IsActive = active
	existing.UpdatedAt = w.now()

	err = w.persistence.SaveWorkflow(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return existing, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	err := w.persistence.DeleteWorkflow(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return err
		}

		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// Templates lists the built-in workflow templates.
func (w *Workflow) Templates() []workflow.Template {
	return workflow.Templates()
}

// CreateFromTemplate instantiates and stores a template. The new workflow
// starts inactive.
func (w *Workflow) CreateFromTemplate(ctx context.Context, templateID, createdBy string) (*models.Workflow, error) {
	template, ok := workflow.TemplateByID(templateID)
	if !ok {
		return nil, &ServiceError{
			Op:      "CreateFromTemplate",
			Code:    "TEMPLATE_NOT_FOUND",
			Message: fmt.Sprintf("template %q does not exist", templateID),
			Err:     ErrTemplateNotFound,
		}
	}

	return w.Create(ctx, template.Instantiate(createdBy, w.now()))
}

// Validate applies the checks Create and Update run without saving anything.
func (w *Workflow) Validate(wf *models.Workflow) error {
	return w.validate("Validate", wf)
}

// validate rejects workflows the engine would refuse to run, including
// condition expressions that do not compile and notification templates that do
// not parse.
func (w *Workflow) validate(op string, wf *models.Workflow) error {
	if wf == nil {
		return ErrWorkflowNil
	}

	wf.Name = strings.TrimSpace(wf.Name)
	if wf.Name == "" {
		return NewValidationError(op, "NAME_REQUIRED", "workflow name is required", ErrWorkflowNameRequired)
	}

	err := wf.Validate()
	if err != nil {
		return NewValidationError(op, "INVALID_GRAPH", err.Error(), err)
	}

	for _, node := range wf.Nodes {
		err := workflow.CheckNode(node, w.conditions)
		if err != nil {
			return NewValidationError(op, nodeErrorCode(node.Type),
				fmt.Sprintf("node %s: %v", node.ID, err), err)
		}
	}

	return nil
}

func nodeErrorCode(nodeType models.NodeType) string {
	switch nodeType {
	case models.NodeTypeStatus:
		return "INVALID_STATUS"
	case models.NodeTypeCondition:
		return "INVALID_CONDITION"
	case models.NodeTypeNotification:
		return "INVALID_NOTIFICATION"
	default:
		return "INVALID_NODE"
	}
}
