// Package main provides the Clearway API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/clearway/clearway/pkg/cmd"
	"github.com/clearway/clearway/pkg/compliance"
	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/dispatch"
	"github.com/clearway/clearway/pkg/eventbus"
	"github.com/clearway/clearway/pkg/orchestrator"
	"github.com/clearway/clearway/pkg/persistence"
	"github.com/clearway/clearway/pkg/services"
	"github.com/clearway/clearway/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *compliance.Registry
	eventBus    eventbus.EventBus
	dispatcher  dispatch.Dispatcher
	cfg         *config.Config
	notifier    string
	validate    *validator.Validate
	sweeper     *orchestrator.SLASweeper
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *compliance.Registry,
	eventBus eventbus.EventBus,
	dispatcher dispatch.Dispatcher,
	cfg *config.Config,
	notifier string,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		dispatcher:  dispatcher,
		cfg:         cfg,
		notifier:    notifier,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() (*fiber.App, error) {
	notifier := cmd.NewNotificationSink(a.notifier, a.eventBus, a.logger)
	engine := orchestrator.NewEngine(a.persistence, a.dispatcher, a.eventBus, notifier, a.cfg, a.logger)

	sweeper, err := orchestrator.NewSLASweeper(engine)
	if err != nil {
		return nil, err
	}

	sweeper.Start()
	a.sweeper = sweeper

	requestService := services.NewRequest(a.persistence, a.registry, engine, a.eventBus, notifier, a.cfg, a.logger)

	handlers := web.NewAPIHandlers(requestService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Clearway API")
	})

	handlers.RegisterRoutes(app)

	return app, nil
}

func (a *API) Start(port int) error {
	app, err := a.App()
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
