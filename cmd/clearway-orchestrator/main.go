package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/clearway/clearway/pkg/cmd"
	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/log"
	"github.com/clearway/clearway/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "clearway-orchestrator",
		EnableShellCompletion: true,
		Usage:                 "Run the orchestration worker: rollbacks, SLA clocks, escalations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "notifier",
				Usage:   "Notification sink (log, eventbus)",
				Value:   "log",
				Sources: cli.EnvVars("NOTIFIER_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for team work queues (in-memory when unset)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "config-file",
				Usage:   "Path to the engine configuration YAML",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "orchestrator-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("clearway-orchestrator").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing Clearway Orchestrator")

			cfg, err := config.LoadOrDefault(command.String("config-file"))
			if err != nil {
				return err
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), "clearway-orchestrator", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			dispatcher := cmd.NewDispatcher(ctx, logger, command.String("redis-url"), cfg)
			defer func() {
				if err := dispatcher.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close dispatcher", "error", err)
				}
			}()

			tracer, err := otelhelper.NewTracer(ctx, "clearway-orchestrator")
			if err != nil {
				return err
			}

			worker := NewWorker(workerID, persistence, eventBus, dispatcher, tracer, cfg, logger, command.String("notifier"))

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start orchestration worker", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
