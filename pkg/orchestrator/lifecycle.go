package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/clearway/clearway/pkg/approval"
	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/notify"
)

// Begin takes an approved request into orchestration: the SLA clock starts,
// the status moves to in_progress and the initial frontier is dispatched.
func (e *Engine) Begin(ctx context.Context, requestID string) error {
	mu := e.lock(requestID)
	mu.Lock()
	defer mu.Unlock()

	request, err := e.persistence.RequestRepository().GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if !approval.CanTransition(request.Status, models.RequestStatusInProgress) {
		return fmt.Errorf("%w: request %s is %s", ErrRequestNotActive, requestID, request.Status)
	}

	now := time.Now().UTC()
	before := request.Status
	request.Status = models.RequestStatusInProgress
	request.UpdatedAt = now

	if request.ApprovedAt == nil {
		request.ApprovedAt = &now
	}

	if err := e.persistence.RequestRepository().Save(ctx, request); err != nil {
		return err
	}

	e.audit(ctx, models.NewAuditEntry(auditActor, "orchestration_started", "request", requestID,
		map[string]any{"status": before},
		map[string]any{"status": request.Status},
	))

	tasks, err := e.persistence.TaskRepository().ListByRequest(ctx, requestID)
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Orchestration started",
		"request_id", requestID, "tasks", len(tasks), "priority", request.Priority)

	e.dispatchFrontier(ctx, requestID, tasks)

	return nil
}

// Cancel marks every non-terminal task cancelled, stops pending retries and
// moves the request to cancelled. Returns how many tasks were cancelled.
func (e *Engine) Cancel(ctx context.Context, requestID, actor, reason string) (int, error) {
	mu := e.lock(requestID)
	mu.Lock()
	defer mu.Unlock()

	request, err := e.persistence.RequestRepository().GetByID(ctx, requestID)
	if err != nil {
		return 0, err
	}

	if !approval.CanTransition(request.Status, models.RequestStatusCancelled) {
		return 0, fmt.Errorf("%w: cannot cancel request in status %s", approval.ErrInvalidTransition, request.Status)
	}

	tasks, err := e.persistence.TaskRepository().ListByRequest(ctx, requestID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	cancelled := 0

	for _, task := range tasks {
		if task.Status.Terminal() {
			continue
		}

		e.stopRetry(task.ID)
		e.queued.Delete(task.ID)

		before := task.Status
		task.Status = models.TaskStatusCancelled
		task.UpdatedAt = now

		if err := e.persistence.TaskRepository().Save(ctx, task); err != nil {
			return cancelled, err
		}

		e.audit(ctx, models.NewAuditEntry(actor, "task_cancelled", "task", task.ID,
			map[string]any{"status": before},
			map[string]any{"status": task.Status},
		))

		cancelled++
	}

	before := request.Status
	request.Status = models.RequestStatusCancelled
	request.UpdatedAt = now

	if err := e.persistence.RequestRepository().Save(ctx, request); err != nil {
		return cancelled, err
	}

	e.audit(ctx, models.NewAuditEntry(actor, "request_cancelled", "request", requestID,
		map[string]any{"status": before},
		map[string]any{"status": request.Status, "reason": reason},
	))

	event := events.RequestCancelled{
		BaseEvent:      events.NewBaseEvent(events.RequestCancelledEvent, requestID),
		CancelledBy:    actor,
		Reason:         reason,
		TasksCancelled: cancelled,
	}
	e.publishBestEffort(ctx, requestID, event)

	e.logger.InfoContext(ctx, "Request cancelled",
		"request_id", requestID, "tasks_cancelled", cancelled, "actor", actor)

	return cancelled, nil
}

// DeploymentFailed re-opens the responsible track's tasks and returns the
// request to orchestration. Completed tasks of the track go back to pending so
// the team redoes them; other tracks are untouched.
func (e *Engine) DeploymentFailed(ctx context.Context, requestID string, track models.Track, reason string) (int, error) {
	mu := e.lock(requestID)
	mu.Lock()
	defer mu.Unlock()

	request, err := e.persistence.RequestRepository().GetByID(ctx, requestID)
	if err != nil {
		return 0, err
	}

	if !approval.CanTransition(request.Status, models.RequestStatusRolledBack) {
		return 0, fmt.Errorf("%w: cannot roll back request in status %s", approval.ErrInvalidTransition, request.Status)
	}

	tasks, err := e.persistence.TaskRepository().ListByRequest(ctx, requestID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	reopened := 0

	for _, task := range tasks {
		if task.Track != track || task.Status != models.TaskStatusCompleted {
			continue
		}

		before := task.Status
		task.Status = models.TaskStatusPending
		task.RetryCount = 0
		task.StartedAt = nil
		task.CompletedAt = nil
		task.UpdatedAt = now

		if err := e.persistence.TaskRepository().Save(ctx, task); err != nil {
			return reopened, err
		}

		e.audit(ctx, models.NewAuditEntry(auditActor, "task_reopened", "task", task.ID,
			map[string]any{"status": before},
			map[string]any{"status": task.Status, "reason": reason},
		))

		reopened++
	}

	before := request.Status
	request.Status = models.RequestStatusRolledBack
	request.UpdatedAt = now

	if err := e.persistence.RequestRepository().Save(ctx, request); err != nil {
		return reopened, err
	}

	e.audit(ctx, models.NewAuditEntry(auditActor, "request_rolled_back", "request", requestID,
		map[string]any{"status": before},
		map[string]any{"status": request.Status, "track": track, "reason": reason},
	))

	rolledBack := events.RequestRolledBack{
		BaseEvent:     events.NewBaseEvent(events.RequestRolledBackEvent, requestID),
		Track:         track,
		TasksReopened: reopened,
		Reason:        reason,
	}
	e.publishBestEffort(ctx, requestID, rolledBack)

	e.notifyBestEffort(ctx, &notify.Notification{
		RequestID: requestID,
		Recipient: request.Requester,
		Channel:   notify.ChannelEmail,
		Kind:      notify.KindRolledBack,
		Message:   fmt.Sprintf("deployment failed, %d %s tasks reopened", reopened, track),
		Details:   map[string]any{"track": track, "reason": reason},
	})

	// Resume orchestration over the reopened tasks.
	request.Status = models.RequestStatusInProgress
	request.UpdatedAt = time.Now().UTC()

	if err := e.persistence.RequestRepository().Save(ctx, request); err != nil {
		return reopened, err
	}

	e.audit(ctx, models.NewAuditEntry(auditActor, "orchestration_resumed", "request", requestID,
		map[string]any{"status": models.RequestStatusRolledBack},
		map[string]any{"status": request.Status},
	))

	// Re-arm the SLA breach latch; the clock keeps its original start.
	e.breached.Delete(requestID)

	e.dispatchFrontier(ctx, requestID, tasks)

	return reopened, nil
}
