// Package main provides the Clearway orchestration worker. It consumes
// deployment failure events from the bus, drives rollbacks through the
// engine, and runs the SLA sweep cron for in-flight requests.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clearway/clearway/pkg/cmd"
	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/dispatch"
	"github.com/clearway/clearway/pkg/eventbus"
	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/orchestrator"
	"github.com/clearway/clearway/pkg/otelhelper"
	"github.com/clearway/clearway/pkg/persistence"
)

type Worker struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	engine      *orchestrator.Engine
	tracer      trace.Tracer
}

func NewWorker(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	dispatcher dispatch.Dispatcher,
	tracer trace.Tracer,
	cfg *config.Config,
	logger *slog.Logger,
	sinkType string,
) *Worker {
	workerLogger := logger.With("module", "clearway-orchestrator", "worker_id", id)
	notifier := cmd.NewNotificationSink(sinkType, eventBus, workerLogger)

	return &Worker{
		id:          id,
		logger:      workerLogger,
		persistence: persistence,
		eventBus:    eventBus,
		engine:      orchestrator.NewEngine(persistence, dispatcher, eventBus, notifier, cfg, logger),
		tracer:      tracer,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting orchestration worker", "worker_id", w.id)

	err := w.eventBus.Handle(events.DeploymentFailedEvent, w.handleDeploymentFailed)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.TaskEscalatedEvent, w.handleTaskEscalated)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.SLABreachedEvent, w.handleSLABreached)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	sweeper, err := orchestrator.NewSLASweeper(w.engine)
	if err != nil {
		return err
	}

	sweeper.Start()
	defer sweeper.Stop()
	defer w.engine.Stop()

	w.logger.InfoContext(ctx, "Orchestration worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down orchestration worker...")

	return nil
}

func (w *Worker) handleDeploymentFailed(ctx context.Context, event any) error {
	failedEvent, ok := event.(*events.DeploymentFailed)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for DeploymentFailed")

		return nil
	}

	spanCtx, span := otelhelper.StartSpan(ctx, w.tracer, "orchestrator.deployment_failed",
		attribute.String(otelhelper.RequestIDKey, failedEvent.RequestID),
		attribute.String(otelhelper.TaskTrackKey, string(failedEvent.Track)),
		attribute.String(otelhelper.EventIDKey, failedEvent.ID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"request_id", failedEvent.RequestID,
		"track", failedEvent.Track,
		"event_id", failedEvent.ID,
	)
	logger.InfoContext(spanCtx, "Processing deployment failed event")

	reopened, err := w.engine.DeploymentFailed(spanCtx, failedEvent.RequestID, failedEvent.Track, failedEvent.Reason)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(spanCtx, "Failed to roll back deployment track", "error", err)

		return err
	}

	logger.InfoContext(spanCtx, "Deployment track rolled back", "tasks_reopened", reopened)

	return nil
}

func (w *Worker) handleTaskEscalated(ctx context.Context, event any) error {
	escalatedEvent, ok := event.(*events.TaskEscalated)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TaskEscalated")

		return nil
	}

	w.logger.WarnContext(ctx, "Task escalated to a human operator",
		"request_id", escalatedEvent.RequestID,
		"task_id", escalatedEvent.TaskID,
		"track", escalatedEvent.Track,
		"retry_count", escalatedEvent.RetryCount,
		"reason", escalatedEvent.Reason,
	)

	return nil
}

func (w *Worker) handleSLABreached(ctx context.Context, event any) error {
	breachedEvent, ok := event.(*events.SLABreached)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for SLABreached")

		return nil
	}

	w.logger.WarnContext(ctx, "Request SLA breached",
		"request_id", breachedEvent.RequestID,
		"priority", breachedEvent.Priority,
		"sla", breachedEvent.SLA.String(),
		"elapsed", breachedEvent.Elapsed.String(),
		"tasks_pending", breachedEvent.TasksPending,
	)

	return nil
}
