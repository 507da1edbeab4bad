package orchestrator

import (
	"context"

	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/models"
)

// Frontier returns the tasks that are ready to run: pending, with every
// dependency completed.
func Frontier(tasks []*models.WorkflowTask) []*models.WorkflowTask {
	byID := make(map[string]*models.WorkflowTask, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	var ready []*models.WorkflowTask

	for _, task := range tasks {
		if task.Status != models.TaskStatusPending {
			continue
		}

		if depsCompleted(task, byID) {
			ready = append(ready, task)
		}
	}

	return ready
}

func depsCompleted(task *models.WorkflowTask, byID map[string]*models.WorkflowTask) bool {
	for _, depID := range task.DependsOn {
		dep, ok := byID[depID]
		if !ok || dep.Status != models.TaskStatusCompleted {
			return false
		}
	}

	return true
}

// converged reports whether every task is terminal.
func converged(tasks []*models.WorkflowTask) bool {
	for _, task := range tasks {
		if !task.Status.Terminal() {
			return false
		}
	}

	return len(tasks) > 0
}

// dispatchFrontier pushes every ready task to its team queue. Dispatches run
// concurrently, bounded by the engine semaphore; a failed dispatch leaves the
// task pending so the next frontier pass retries it. A task already sitting
// in its queue is not sent again; the queued mark is dropped when the task
// leaves pending, so a blocked task returning to the frontier is re-delivered.
func (e *Engine) dispatchFrontier(ctx context.Context, requestID string, tasks []*models.WorkflowTask) {
	for _, task := range Frontier(tasks) {
		if _, alreadyQueued := e.queued.LoadOrStore(task.ID, struct{}{}); alreadyQueued {
			continue
		}

		e.sem <- struct{}{}

		go func(task *models.WorkflowTask) {
			defer func() { <-e.sem }()

			dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Orchestrator.DispatchTimeout)
			defer cancel()

			if err := e.dispatcher.Dispatch(dispatchCtx, task); err != nil {
				e.queued.Delete(task.ID)
				e.logger.ErrorContext(dispatchCtx, "Failed to dispatch task",
					"task_id", task.ID, "track", task.Track, "error", err)

				return
			}

			event := events.TaskDispatched{
				BaseEvent: events.NewBaseEvent(events.TaskDispatchedEvent, requestID),
				TaskID:    task.ID,
				Track:     task.Track,
				Name:      task.Name,
			}
			e.publishBestEffort(dispatchCtx, requestID, event)
		}(task)
	}
}
