package notify

import (
	"context"

	"github.com/clearway/clearway/pkg/eventbus"
	"github.com/clearway/clearway/pkg/events"
)

// EventSink publishes notifications onto the event bus for the external
// delivery collaborators (email, ticketing) to pick up.
type EventSink struct {
	publisher eventbus.EventPublisher
}

// NewEventSink creates a sink backed by the given publisher.
func NewEventSink(publisher eventbus.EventPublisher) *EventSink {
	return &EventSink{publisher: publisher}
}

// Notify publishes the notification as a notification.sent event keyed by the
// request it concerns.
func (s *EventSink) Notify(ctx context.Context, n *Notification) error {
	event := events.NotificationSent{
		BaseEvent: events.NewBaseEvent(events.NotificationSentEvent, n.RequestID),
		TaskID:    n.TaskID,
		Recipient: n.Recipient,
		Channel:   n.Channel,
		Kind:      n.Kind,
		Message:   n.Message,
		Details:   n.Details,
	}

	return s.publisher.Publish(ctx, n.RequestID, event)
}
