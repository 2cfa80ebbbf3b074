// Package main provides the flowcanvas API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/services"
	"github.com/dukex/flowcanvas/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		tracer:      tracer,
	}
}

func (a *API) App() *fiber.App {
	opts := []services.Option{services.WithLogger(a.logger)}

	if a.tracer != nil {
		opts = append(opts, services.WithTracer(a.tracer))
	}

	if a.eventBus != nil {
		opts = append(opts, services.WithEventPublisher(a.eventBus))
	}

	workflowService := services.NewWorkflow(a.persistence, opts...)
	handlers := web.NewAPIHandlers(workflowService, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowcanvas API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
