package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/notify"
)

// Callback is a task status report from a team's ticketing collaborator.
type Callback struct {
	TaskID      string
	Status      models.TaskStatus
	ActualHours float64
	Comment     string
	Actor       string
}

// taskTransitions is the allowed task status transition table. A callback
// reporting the current status is a no-op, not a violation.
var taskTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusPending: {
		models.TaskStatusInProgress,
		models.TaskStatusBlocked,
		models.TaskStatusCancelled,
	},
	models.TaskStatusInProgress: {
		models.TaskStatusCompleted,
		models.TaskStatusBlocked,
		models.TaskStatusCancelled,
	},
	models.TaskStatusBlocked: {
		models.TaskStatusPending,
		models.TaskStatusInProgress,
		models.TaskStatusCancelled,
	},
}

func canTransitionTask(from, to models.TaskStatus) bool {
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// HandleCallback applies one status report. Duplicate reports are absorbed
// without side effects; a completed task unlocks its dependents on the same
// pass.
func (e *Engine) HandleCallback(ctx context.Context, cb *Callback) error {
	located, err := e.persistence.TaskRepository().GetByID(ctx, cb.TaskID)
	if err != nil {
		return err
	}

	mu := e.lock(located.RequestID)
	mu.Lock()
	defer mu.Unlock()

	task, err := e.persistence.TaskRepository().GetByID(ctx, cb.TaskID)
	if err != nil {
		return err
	}

	if task.Status == cb.Status {
		e.logger.InfoContext(ctx, "Duplicate task callback ignored",
			"task_id", task.ID, "status", task.Status)

		return nil
	}

	if !canTransitionTask(task.Status, cb.Status) {
		return fmt.Errorf("%w: task %s cannot move %s -> %s",
			ErrInvalidTaskTransition, task.ID, task.Status, cb.Status)
	}

	tasks, err := e.persistence.TaskRepository().ListByRequest(ctx, task.RequestID)
	if err != nil {
		return err
	}

	if cb.Status == models.TaskStatusInProgress {
		byID := make(map[string]*models.WorkflowTask, len(tasks))
		for _, t := range tasks {
			byID[t.ID] = t
		}

		if !depsCompleted(task, byID) {
			return fmt.Errorf("%w: task %s", ErrDependenciesIncomplete, task.ID)
		}
	}

	now := time.Now().UTC()
	before := task.Status
	task.Status = cb.Status
	task.UpdatedAt = now

	if cb.ActualHours > 0 {
		task.ActualHours = cb.ActualHours
	}

	if cb.Comment != "" {
		task.Comments = append(task.Comments, cb.Comment)
	}

	switch cb.Status {
	case models.TaskStatusInProgress:
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
	case models.TaskStatusCompleted:
		task.CompletedAt = &now
	}

	if err := e.persistence.TaskRepository().Save(ctx, task); err != nil {
		return err
	}

	// The task left its queued state either by being picked up or by moving
	// back to pending; either way the next frontier pass may deliver it again.
	e.queued.Delete(task.ID)

	actor := cb.Actor
	if actor == "" {
		actor = auditActor
	}

	e.audit(ctx, models.NewAuditEntry(actor, "task_status_changed", "task", task.ID,
		map[string]any{"status": before},
		map[string]any{"status": task.Status, "comment": cb.Comment},
	))

	changed := events.TaskStatusChanged{
		BaseEvent: events.NewBaseEvent(events.TaskStatusChangedEvent, task.RequestID),
		TaskID:    task.ID,
		OldStatus: before,
		NewStatus: task.Status,
		Comment:   cb.Comment,
	}
	e.publishBestEffort(ctx, task.RequestID, changed)

	// Keep the in-memory slice coherent for the frontier pass below.
	for i, t := range tasks {
		if t.ID == task.ID {
			tasks[i] = task
		}
	}

	switch cb.Status {
	case models.TaskStatusPending:
		// An operator releasing a blocked task puts it back on the frontier.
		e.dispatchFrontier(ctx, task.RequestID, tasks)
	case models.TaskStatusBlocked:
		e.scheduleRetry(ctx, task)
	case models.TaskStatusCompleted:
		e.dispatchFrontier(ctx, task.RequestID, tasks)

		if converged(tasks) {
			return e.converge(ctx, task.RequestID, tasks)
		}
	case models.TaskStatusCancelled:
		e.stopRetry(task.ID)

		if converged(tasks) {
			return e.converge(ctx, task.RequestID, tasks)
		}
	}

	return nil
}

// converge moves an in_progress request to completed once. Re-entry after
// completion is a no-op because the status gate no longer matches.
func (e *Engine) converge(ctx context.Context, requestID string, tasks []*models.WorkflowTask) error {
	request, err := e.persistence.RequestRepository().GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.Status != models.RequestStatusInProgress {
		return nil
	}

	now := time.Now().UTC()
	request.Status = models.RequestStatusCompleted
	request.UpdatedAt = now

	if err := e.persistence.RequestRepository().Save(ctx, request); err != nil {
		return err
	}

	e.audit(ctx, models.NewAuditEntry(auditActor, "request_converged", "request", requestID,
		map[string]any{"status": models.RequestStatusInProgress},
		map[string]any{"status": request.Status},
	))

	completed, cancelled := 0, 0

	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusCompleted:
			completed++
		case models.TaskStatusCancelled:
			cancelled++
		}
	}

	var duration time.Duration
	if request.ApprovedAt != nil {
		duration = now.Sub(*request.ApprovedAt)
	}

	event := events.RequestConverged{
		BaseEvent:      events.NewBaseEvent(events.RequestConvergedEvent, requestID),
		TasksCompleted: completed,
		TasksCancelled: cancelled,
		Duration:       duration,
	}
	e.publishBestEffort(ctx, requestID, event)

	e.notifyBestEffort(ctx, &notify.Notification{
		RequestID: requestID,
		Recipient: request.Requester,
		Channel:   notify.ChannelEmail,
		Kind:      notify.KindConverged,
		Message:   "all tracks converged, ready for deployment",
		Details:   map[string]any{"tasks_completed": completed, "tasks_cancelled": cancelled},
	})

	e.logger.InfoContext(ctx, "Request converged",
		"request_id", requestID, "tasks_completed", completed, "duration", duration)

	return nil
}
