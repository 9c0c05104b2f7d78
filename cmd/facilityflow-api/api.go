// Package main provides the facilityflow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/residentdesk/facilityflow/pkg/bookings"
	"github.com/residentdesk/facilityflow/pkg/eventbus"
	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/persistence"
	"github.com/residentdesk/facilityflow/pkg/services"
	"github.com/residentdesk/facilityflow/pkg/web"
	"github.com/residentdesk/facilityflow/pkg/workflow"
)

type API struct {
	logger        *slog.Logger
	persistence   persistence.Persistence
	executions    executions.Store
	eventBus      eventbus.EventBus
	engine        *workflow.Engine
	asyncTriggers bool
	validate      *validator.Validate

	workflowService  *services.Workflow
	executionService *services.Executions
	bookingService   *services.Bookings
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	executionStore executions.Store,
	eventBus eventbus.EventBus,
	engine *workflow.Engine,
	asyncTriggers bool,
) *API {
	api := &API{
		logger:        logger,
		persistence:   persistence,
		executions:    executionStore,
		eventBus:      eventBus,
		engine:        engine,
		asyncTriggers: asyncTriggers,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}

	bookingStore := bookings.NewStore()

	api.workflowService = services.NewWorkflow(persistence, logger)
	api.executionService = services.NewExecutions(executionStore, persistence, bookingStore, engine, logger,
		services.WithExecutionEvents(eventBus))

	triggers := workflow.NewTriggerManager(engine, logger,
		workflow.WithStepObserver(api.executionService.ObserveStep))

	bookingOpts := []services.BookingsOption{services.WithBookingEvents(eventBus)}
	if asyncTriggers {
		bookingOpts = append(bookingOpts, services.WithAsyncTriggers())
	}

	api.bookingService = services.NewBookings(bookingStore, persistence, triggers, api.executionService, logger, bookingOpts...)

	return api
}

// Listen subscribes the trigger handlers when triggers run from the event
// bus. The subscription lives as long as ctx.
func (a *API) Listen(ctx context.Context) error {
	if !a.asyncTriggers {
		return nil
	}

	err := a.bookingService.RegisterEventHandlers(a.eventBus)
	if err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.workflowService, a.executionService, a.bookingService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, persistenceOk := a.workflowService.HealthCheck(c.Context())
			_, executionsOk := a.executionService.HealthCheck(c.Context())

			return persistenceOk && executionsOk
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Facilityflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
