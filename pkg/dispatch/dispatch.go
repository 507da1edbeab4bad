// Package dispatch delivers frontier tasks to per-track team work queues.
package dispatch

import (
	"context"
	"time"

	"github.com/clearway/clearway/pkg/models"
)

// Envelope is the message pushed onto a team queue when a task becomes ready.
type Envelope struct {
	TaskID       string       `json:"task_id"`
	RequestID    string       `json:"request_id"`
	Track        models.Track `json:"track"`
	Name         string       `json:"name"`
	DependsOn    []string     `json:"depends_on"`
	RetryCount   int          `json:"retry_count"`
	DispatchedAt time.Time    `json:"dispatched_at"`
}

// NewEnvelope builds the queue message for a task.
func NewEnvelope(task *models.WorkflowTask) *Envelope {
	return &Envelope{
		TaskID:       task.ID,
		RequestID:    task.RequestID,
		Track:        task.Track,
		Name:         task.Name,
		DependsOn:    task.DependsOn,
		RetryCount:   task.RetryCount,
		DispatchedAt: time.Now().UTC(),
	}
}

// Dispatcher pushes ready tasks to the owning team's queue. Implementations
// must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *models.WorkflowTask) error
	Close() error
}
