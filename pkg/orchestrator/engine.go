// Package orchestrator drives approved requests through their task graphs. One
// engine serves many requests; mutations on a single request are serialized so
// frontier computation never races a concurrent callback.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/dispatch"
	"github.com/clearway/clearway/pkg/eventbus"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/notify"
	"github.com/clearway/clearway/pkg/persistence"
)

var (
	// ErrInvalidTaskTransition is returned for a callback that asks for a
	// status the task cannot move to.
	ErrInvalidTaskTransition = errors.New("invalid task status transition")

	// ErrDependenciesIncomplete is returned when a task is reported
	// in_progress while one of its dependencies is not completed.
	ErrDependenciesIncomplete = errors.New("task dependencies not completed")

	// ErrRequestNotActive is returned for lifecycle operations on a request
	// that is not currently in progress.
	ErrRequestNotActive = errors.New("request is not in progress")
)

const auditActor = "orchestrator"

// Engine owns task state for in-progress requests.
type Engine struct {
	persistence persistence.Persistence
	dispatcher  dispatch.Dispatcher
	publisher   eventbus.EventPublisher
	notifier    notify.Sink
	cfg         *config.Config
	logger      *slog.Logger

	locks    sync.Map // request ID -> *sync.Mutex
	sem      chan struct{}
	breached sync.Map // request IDs whose SLA breach was already emitted
	queued   sync.Map // task IDs already pushed to a team queue

	retryMu sync.Mutex
	retries map[string]*time.Timer // task ID -> pending retry timer
}

// NewEngine creates an orchestration engine.
func NewEngine(
	persistence persistence.Persistence,
	dispatcher dispatch.Dispatcher,
	publisher eventbus.EventPublisher,
	notifier notify.Sink,
	cfg *config.Config,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		persistence: persistence,
		dispatcher:  dispatcher,
		publisher:   publisher,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger.With("module", "orchestrator"),
		sem:         make(chan struct{}, cfg.Orchestrator.DispatchConcurrency),
		retries:     make(map[string]*time.Timer),
	}
}

// lock returns the mutex serializing mutations for one request.
func (e *Engine) lock(requestID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(requestID, &sync.Mutex{})

	return mu.(*sync.Mutex)
}

// Stop cancels pending retry timers. In-flight dispatches finish on their own
// context deadlines.
func (e *Engine) Stop() {
	e.retryMu.Lock()
	defer e.retryMu.Unlock()

	for id, timer := range e.retries {
		timer.Stop()
		delete(e.retries, id)
	}
}

func (e *Engine) notifyBestEffort(ctx context.Context, n *notify.Notification) {
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.ErrorContext(ctx, "Failed to deliver notification",
			"kind", n.Kind, "request_id", n.RequestID, "error", err)
	}
}

func (e *Engine) publishBestEffort(ctx context.Context, requestID string, event eventbus.Event) {
	if err := e.publisher.Publish(ctx, requestID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "request_id", requestID, "error", err)
	}
}

func (e *Engine) audit(ctx context.Context, entry *models.AuditEntry) {
	if err := e.persistence.AuditRepository().Append(ctx, entry); err != nil {
		e.logger.ErrorContext(ctx, "Failed to append audit entry",
			"action", entry.Action, "entity_id", entry.EntityID, "error", err)
	}
}
