package dispatch

import (
	"context"
	"sync"

	"github.com/clearway/clearway/pkg/models"
)

// MemoryDispatcher keeps dispatched envelopes in memory, grouped by track.
// Used in tests and single-process deployments without redis.
type MemoryDispatcher struct {
	mu     sync.Mutex
	queues map[models.Track][]*Envelope
}

// NewMemoryDispatcher creates an in-memory dispatcher.
func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{queues: make(map[models.Track][]*Envelope)}
}

// Dispatch appends the task envelope to its track queue.
func (d *MemoryDispatcher) Dispatch(_ context.Context, task *models.WorkflowTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queues[task.Track] = append(d.queues[task.Track], NewEnvelope(task))

	return nil
}

// Queue returns a copy of the envelopes dispatched to a track so far.
func (d *MemoryDispatcher) Queue(track models.Track) []*Envelope {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue := make([]*Envelope, len(d.queues[track]))
	copy(queue, d.queues[track])

	return queue
}

// Close is a no-op.
func (d *MemoryDispatcher) Close() error {
	return nil
}
