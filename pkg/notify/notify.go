// Package notify fans state-change notifications out to interested teams.
package notify

import (
	"context"
	"log/slog"
)

// Notification is a human-facing message about a request or task state change.
// Recipient and Channel are hints for the delivering collaborator; the core
// never talks to email or ticketing systems directly.
type Notification struct {
	RequestID string         `json:"request_id"`
	TaskID    string         `json:"task_id,omitempty"`
	Recipient string         `json:"recipient,omitempty"`
	Channel   string         `json:"channel,omitempty"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Delivery channels understood by the external collaborators.
const (
	ChannelEmail  = "email"
	ChannelTicket = "ticket"
)

// Notification kinds emitted by the orchestration layer.
const (
	KindDecision      = "decision"
	KindSignOffNeeded = "sign_off_needed"
	KindEscalation    = "escalation"
	KindSLABreach     = "sla_breach"
	KindConverged     = "converged"
	KindRolledBack    = "rolled_back"
)

// Sink receives notifications. Delivery failures are logged by callers but do
// not fail the operation that produced the notification.
type Sink interface {
	Notify(ctx context.Context, notification *Notification) error
}

// LogSink writes notifications to the structured log. The default sink when no
// external channel is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a logging sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "notify")}
}

// Notify logs the notification at info level.
func (s *LogSink) Notify(ctx context.Context, n *Notification) error {
	s.logger.InfoContext(ctx, "Notification",
		"kind", n.Kind,
		"request_id", n.RequestID,
		"task_id", n.TaskID,
		"recipient", n.Recipient,
		"channel", n.Channel,
		"message", n.Message,
	)

	return nil
}
