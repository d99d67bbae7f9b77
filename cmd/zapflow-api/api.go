// Package main provides the ZapFlow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/zapflow/zapflow/pkg/collaborators"
	"github.com/zapflow/zapflow/pkg/eventbus"
	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/locks"
	"github.com/zapflow/zapflow/pkg/persistence"
	"github.com/zapflow/zapflow/pkg/registry"
	"github.com/zapflow/zapflow/pkg/services"
	"github.com/zapflow/zapflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	locker      locks.Locker
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	locker locks.Locker,
) *API {
	return &API{
		logger:      logger,
		persistence: p,
		registry:    reg,
		eventBus:    eventBus,
		locker:      locker,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	flowService := services.NewFlows(a.persistence)
	validator := flow.NewValidator(a.registry)
	publishingService := services.NewPublishing(a.persistence, validator, a.eventBus, a.logger)

	dispatcher := collaborators.NewBusDispatcher(a.eventBus)
	executor := flow.NewExecutor(a.registry, a.persistence.FlowRepository(), dispatcher, a.logger)
	resolver := flow.NewResolver(a.logger)
	engine := services.NewEngine(a.persistence, nil, executor, resolver, a.eventBus,
		a.locker, flow.ResumeWins, "api", a.logger)

	handlers := web.NewAPIHandlers(flowService, publishingService, engine,
		a.persistence, a.eventBus, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ZapFlow API")
	})

	app.Post("/webhook", handlers.PostWebhook)

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)
	f.Post("/:id/publish", handlers.PublishFlow)
	f.Post("/:id/unpublish", handlers.UnpublishFlow)

	c := app.Group("/organizations/:orgId/conversations")
	c.Get("/:contactId", handlers.GetConversation)
	c.Post("/:contactId/reset", handlers.ResetConversation)
	c.Post("/:contactId/resume", handlers.ResumeConversation)

	app.Get("/node-types", handlers.GetNodeTypes)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
