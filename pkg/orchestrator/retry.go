package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/notify"
)

// scheduleRetry arms a backoff timer for a blocked task, or escalates when the
// retry budget is spent. Caller holds the request lock.
func (e *Engine) scheduleRetry(ctx context.Context, task *models.WorkflowTask) {
	if task.RetryCount >= e.cfg.Orchestrator.MaxRetries {
		e.escalate(ctx, task)

		return
	}

	task.RetryCount++
	task.UpdatedAt = time.Now().UTC()

	if err := e.persistence.TaskRepository().Save(ctx, task); err != nil {
		e.logger.ErrorContext(ctx, "Failed to record retry attempt",
			"task_id", task.ID, "error", err)

		return
	}

	backoff := e.cfg.Orchestrator.RetryBackoffBase << (task.RetryCount - 1)

	e.logger.InfoContext(ctx, "Task blocked, retry scheduled",
		"task_id", task.ID, "attempt", task.RetryCount, "backoff", backoff)

	retryCtx := context.WithoutCancel(ctx)

	e.retryMu.Lock()
	e.retries[task.ID] = time.AfterFunc(backoff, func() {
		e.retryMu.Lock()
		delete(e.retries, task.ID)
		e.retryMu.Unlock()

		e.retryTask(retryCtx, task.RequestID, task.ID)
	})
	e.retryMu.Unlock()
}

// retryTask returns a still-blocked task to the frontier.
func (e *Engine) retryTask(ctx context.Context, requestID, taskID string) {
	mu := e.lock(requestID)
	mu.Lock()
	defer mu.Unlock()

	task, err := e.persistence.TaskRepository().GetByID(ctx, taskID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load task for retry", "task_id", taskID, "error", err)

		return
	}

	if task.Status != models.TaskStatusBlocked {
		return
	}

	task.Status = models.TaskStatusPending
	task.UpdatedAt = time.Now().UTC()

	if err := e.persistence.TaskRepository().Save(ctx, task); err != nil {
		e.logger.ErrorContext(ctx, "Failed to reset task for retry", "task_id", taskID, "error", err)

		return
	}

	e.audit(ctx, models.NewAuditEntry(auditActor, "task_retried", "task", task.ID,
		map[string]any{"status": models.TaskStatusBlocked},
		map[string]any{"status": task.Status, "attempt": task.RetryCount},
	))

	tasks, err := e.persistence.TaskRepository().ListByRequest(ctx, requestID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to list tasks for retry dispatch", "request_id", requestID, "error", err)

		return
	}

	e.dispatchFrontier(ctx, requestID, tasks)
}

// escalate hands a task that exhausted its retries to a human. The task stays
// blocked until an operator callback moves it.
func (e *Engine) escalate(ctx context.Context, task *models.WorkflowTask) {
	reason := fmt.Sprintf("blocked after %d retries", task.RetryCount)

	e.audit(ctx, models.NewAuditEntry(auditActor, "task_escalated", "task", task.ID,
		nil,
		map[string]any{"retry_count": task.RetryCount, "reason": reason},
	))

	event := events.TaskEscalated{
		BaseEvent:  events.NewBaseEvent(events.TaskEscalatedEvent, task.RequestID),
		TaskID:     task.ID,
		Track:      task.Track,
		RetryCount: task.RetryCount,
		Reason:     reason,
	}
	e.publishBestEffort(ctx, task.RequestID, event)

	e.notifyBestEffort(ctx, &notify.Notification{
		RequestID: task.RequestID,
		TaskID:    task.ID,
		Recipient: string(task.Track),
		Channel:   notify.ChannelTicket,
		Kind:      notify.KindEscalation,
		Message:   fmt.Sprintf("task %q requires human intervention: %s", task.Name, reason),
		Details:   map[string]any{"track": task.Track, "retry_count": task.RetryCount},
	})

	e.logger.WarnContext(ctx, "Task escalated",
		"task_id", task.ID, "track", task.Track, "retry_count", task.RetryCount)
}

// stopRetry cancels a pending retry timer for the task, if any.
func (e *Engine) stopRetry(taskID string) {
	e.retryMu.Lock()
	defer e.retryMu.Unlock()

	if timer, ok := e.retries[taskID]; ok {
		timer.Stop()
		delete(e.retries, taskID)
	}
}
