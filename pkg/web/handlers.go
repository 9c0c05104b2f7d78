package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/schema"
	"github.com/residentdesk/facilityflow/pkg/services"
)

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Executions
	bookingService   *services.Bookings
	validator        *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Executions,
	bookingService *services.Bookings,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		bookingService:   bookingService,
		validator:        validator,
	}
}

// Register mounts every API route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/templates", h.GetTemplates)
	w.Post("/templates/:templateId", h.CreateFromTemplate)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Patch("/:id/active", h.SetWorkflowActive)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/run", h.RunWorkflow)

	e := router.Group("/executions")
	e.Get("/", h.GetExecutions)
	e.Get("/:id", h.GetExecution)

	b := router.Group("/bookings")
	b.Get("/", h.GetBookings)
	b.Post("/", h.CreateBooking)
	b.Get("/:id", h.GetBooking)
	b.Post("/:id/status", h.ChangeBookingStatus)
	b.Post("/:id/approval", h.DecideBookingApproval)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	workflow, err := h.decodeWorkflow(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	created, err := h.workflowService.Create(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	workflow, err := h.decodeWorkflow(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) SetWorkflowActive(c fiber.Ctx) error {
	var req SetActiveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.SetActive(c.Context(), c.Params("id"), *req.IsActive)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.executionService.Run(c.Context(), c.Params("id"), req.BookingID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	return c.JSON(h.workflowService.Templates())
}

func (h *APIHandlers) CreateFromTemplate(c fiber.Ctx) error {
	var req CreateFromTemplateRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	workflow, err := h.workflowService.CreateFromTemplate(c.Context(), c.Params("templateId"), req.CreatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	filter := executions.Filter{
		WorkflowID: c.Query("workflow_id"),
		BookingID:  c.Query("booking_id"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}

		filter.Limit = limit
	}

	list, err := h.executionService.List(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(list)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetBookings(c fiber.Ctx) error {
	return c.JSON(h.bookingService.List(c.Context()))
}

func (h *APIHandlers) GetBooking(c fiber.Ctx) error {
	booking, err := h.bookingService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(booking)
}

func (h *APIHandlers) CreateBooking(c fiber.Ctx) error {
	var req CreateBookingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.bookingService.Create(c.Context(), req.Booking())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) ChangeBookingStatus(c fiber.Ctx) error {
	var req ChangeStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.bookingService.ChangeStatus(c.Context(), c.Params("id"), req.Status, req.UpdatedBy, req.Note)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) DecideBookingApproval(c fiber.Ctx) error {
	var req ApprovalDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.bookingService.DecideApproval(c.Context(), c.Params("id"),
		models.ApprovalDecision(req.Decision), req.DecidedBy, req.Note)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	persistenceCheck, persistenceOk := h.workflowService.HealthCheck(c.Context())
	executionsCheck, executionsOk := h.executionService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Facilityflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if persistenceOk && executionsOk {
		status = "healthy"
		message = "Facilityflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": persistenceCheck,
			"executions":  executionsCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// decodeWorkflow checks the body against the workflow document schema before
// decoding it, then applies the model's struct tags.
func (h *APIHandlers) decodeWorkflow(c fiber.Ctx) (*models.Workflow, error) {
	body := c.Body()

	err := schema.ValidateWorkflow(body)
	if err != nil {
		return nil, err
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, services.NewValidationError("DecodeWorkflow", "INVALID_JSON", err.Error(), services.ErrInvalidRequest)
	}

	err = h.validator.Struct(workflow)
	if err != nil {
		return nil, services.NewValidationError("DecodeWorkflow", "INVALID_WORKFLOW", err.Error(), services.ErrInvalidRequest)
	}

	return &workflow, nil
}
