package main

import (
	"context"
	"os"

	"github.com/dukex/flowcanvas/pkg/cmd"
	"github.com/dukex/flowcanvas/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort = 9091
	serviceName = "flowcanvas-api"
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Serve the workflow graph API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Workflow store URL (postgres://... or file://<dir>)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Optional redis URL caching workflow reads",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Lifecycle event bus (gochannel, kafka); empty disables events",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing flowcanvas API")

			tracer, shutdown, err := cmd.NewTracer(ctx, command.Bool("otel-enabled"), serviceName)
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			persistence, err := cmd.WithCache(ctx, logger, store, command.String("redis-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, logger)
			if err != nil {
				return err
			}

			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			if err := cmd.ListenForInvalidations(ctx, persistence, eventBus); err != nil {
				return err
			}

			api := NewAPI(logger, persistence, eventBus, tracer)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("flowcanvas API stopped", "error", err)
		os.Exit(1)
	}
}
