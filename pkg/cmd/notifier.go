package cmd

import (
	"log/slog"

	"github.com/clearway/clearway/pkg/eventbus"
	"github.com/clearway/clearway/pkg/notify"
)

// NewNotificationSink selects the notification sink. "eventbus" hands
// notifications to the delivery collaborators over the bus; anything else
// keeps them in the structured log.
func NewNotificationSink(sinkType string, bus eventbus.EventPublisher, logger *slog.Logger) notify.Sink {
	if sinkType == "eventbus" {
		return notify.NewEventSink(bus)
	}

	return notify.NewLogSink(logger)
}
