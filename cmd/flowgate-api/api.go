// Package main provides the Flowgate API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/mfgworks/flowgate/pkg/eventbus"
	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence"
	"github.com/mfgworks/flowgate/pkg/registry"
	"github.com/mfgworks/flowgate/pkg/services"
	"github.com/mfgworks/flowgate/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	historyService := services.NewHistory(a.persistence)
	definitionsService := services.NewDefinitions(a.persistence, models.DefaultFieldRegistry(), a.logger)
	approvalsService := services.NewApprovals(a.persistence, a.eventBus, historyService, a.logger)
	executorService := services.NewExecutor(a.persistence, a.registry, approvalsService, historyService, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(definitionsService, executorService, approvalsService, historyService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowgate API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.PatchWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)

	// State and transition endpoints:
	w.Get("/:id/states", handlers.GetWorkflowStates)
	w.Post("/:id/states", handlers.CreateWorkflowState)
	w.Patch("/:id/states/:stateID", handlers.PatchWorkflowState)
	w.Delete("/:id/states/:stateID", handlers.DeleteWorkflowState)
	w.Get("/:id/transitions", handlers.GetWorkflowTransitions)
	w.Post("/:id/transitions", handlers.CreateWorkflowTransition)
	w.Patch("/:id/transitions/:transitionID", handlers.PatchWorkflowTransition)
	w.Delete("/:id/transitions/:transitionID", handlers.DeleteWorkflowTransition)

	e := app.Group("/entities/:entityType/:entityID")
	e.Post("/start", handlers.StartWorkflow)
	e.Post("/transitions/:transitionID", handlers.ExecuteTransition)
	e.Get("/status", handlers.GetEntityStatus)
	e.Get("/history", handlers.GetEntityHistory)
	e.Get("/approvals", handlers.GetEntityApprovals)
	e.Post("/comments", handlers.AddEntityComment)

	app.Post("/transitions/:transitionID/validate", handlers.ValidateTransition)

	ap := app.Group("/approvals")
	ap.Post("/", handlers.CreateApproval)
	ap.Get("/pending", handlers.GetPendingApprovals)
	ap.Get("/:id", handlers.GetApproval)
	ap.Post("/:id/decision", handlers.DecideApproval)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
