package testutil

import (
	"context"
	"sync"

	"github.com/clearway/clearway/pkg/eventbus"
	"github.com/clearway/clearway/pkg/events"
)

// CapturePublisher records published events for assertions.
type CapturePublisher struct {
	mu        sync.Mutex
	published []eventbus.Event
}

// NewCapturePublisher creates a recording publisher.
func NewCapturePublisher() *CapturePublisher {
	return &CapturePublisher{}
}

// Publish records the event.
func (p *CapturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.published = append(p.published, event)

	return nil
}

// Published returns a copy of every recorded event.
func (p *CapturePublisher) Published() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	published := make([]eventbus.Event, len(p.published))
	copy(published, p.published)

	return published
}

// OfType returns the recorded events of one type.
func (p *CapturePublisher) OfType(eventType events.EventType) []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []eventbus.Event

	for _, event := range p.published {
		if event.GetType() == eventType {
			matched = append(matched, event)
		}
	}

	return matched
}
