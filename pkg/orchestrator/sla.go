package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/notify"
)

// SLASweeper periodically checks in-progress requests against their priority
// SLA clocks. A breach emits one escalation event per request; tasks keep
// running.
type SLASweeper struct {
	engine *Engine
	cron   *cron.Cron
}

// NewSLASweeper creates a sweeper driven by the configured cron schedule.
func NewSLASweeper(engine *Engine) (*SLASweeper, error) {
	sweeper := &SLASweeper{
		engine: engine,
		cron:   cron.New(),
	}

	_, err := sweeper.cron.AddFunc(engine.cfg.Orchestrator.SLASweepSchedule, func() {
		sweeper.Sweep(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid SLA sweep schedule %q: %w",
			engine.cfg.Orchestrator.SLASweepSchedule, err)
	}

	return sweeper, nil
}

// Start begins the sweep schedule.
func (s *SLASweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *SLASweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// Sweep checks every in-progress request once.
func (s *SLASweeper) Sweep(ctx context.Context) {
	e := s.engine

	requests, err := e.persistence.RequestRepository().ListByStatus(ctx, models.RequestStatusInProgress)
	if err != nil {
		e.logger.ErrorContext(ctx, "SLA sweep failed to list requests", "error", err)

		return
	}

	now := time.Now().UTC()

	for _, request := range requests {
		if request.ApprovedAt == nil {
			continue
		}

		sla := e.cfg.SLAFor(request.Priority)

		elapsed := now.Sub(*request.ApprovedAt)
		if elapsed <= sla {
			continue
		}

		if _, already := e.breached.LoadOrStore(request.ID, struct{}{}); already {
			continue
		}

		s.breach(ctx, request, sla, elapsed)
	}
}

func (s *SLASweeper) breach(ctx context.Context, request *models.Request, sla, elapsed time.Duration) {
	e := s.engine

	tasks, err := e.persistence.TaskRepository().ListByRequest(ctx, request.ID)
	if err != nil {
		e.logger.ErrorContext(ctx, "SLA sweep failed to list tasks",
			"request_id", request.ID, "error", err)
		e.breached.Delete(request.ID)

		return
	}

	pending := 0

	for _, task := range tasks {
		if !task.Status.Terminal() {
			pending++
		}
	}

	e.audit(ctx, models.NewAuditEntry(auditActor, "sla_breached", "request", request.ID,
		nil,
		map[string]any{"sla": sla.String(), "elapsed": elapsed.String(), "tasks_pending": pending},
	))

	event := events.SLABreached{
		BaseEvent:    events.NewBaseEvent(events.SLABreachedEvent, request.ID),
		Priority:     request.Priority,
		SLA:          sla,
		Elapsed:      elapsed,
		TasksPending: pending,
	}
	e.publishBestEffort(ctx, request.ID, event)

	e.notifyBestEffort(ctx, &notify.Notification{
		RequestID: request.ID,
		Recipient: request.Requester,
		Channel:   notify.ChannelEmail,
		Kind:      notify.KindSLABreach,
		Message:   fmt.Sprintf("SLA of %s exceeded with %d tasks outstanding", sla, pending),
		Details:   map[string]any{"priority": request.Priority, "elapsed": elapsed.String()},
	})

	e.logger.WarnContext(ctx, "SLA breached",
		"request_id", request.ID, "priority", request.Priority,
		"sla", sla, "elapsed", elapsed, "tasks_pending", pending)
}
