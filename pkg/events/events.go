// Package events defines event types for onboarding request lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearway/clearway/pkg/models"
)

type EventType string

// Kafka topic carrying every request lifecycle event.
const Topic = "clearway.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Request lifecycle events.
	RequestSubmittedEvent        EventType = "request.submitted"
	RequestEvaluatedEvent        EventType = "request.evaluated"
	RequestApprovedEvent         EventType = "request.approved"
	RequestRejectedEvent         EventType = "request.rejected"
	RequestChangesRequestedEvent EventType = "request.changes_requested"
	RequestCancelledEvent        EventType = "request.cancelled"
	RequestConvergedEvent        EventType = "request.converged"
	RequestRolledBackEvent       EventType = "request.rolled_back"

	// Task lifecycle events.
	TaskDispatchedEvent    EventType = "task.dispatched"
	TaskStatusChangedEvent EventType = "task.status_changed"
	TaskEscalatedEvent     EventType = "task.escalated"

	// SLA and deployment events.
	SLABreachedEvent      EventType = "sla.breached"
	DeploymentFailedEvent EventType = "deployment.failed"

	// Notification events.
	NotificationSentEvent EventType = "notification.sent"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, requestID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Metadata:  make(map[string]any),
	}
}

type RequestSubmitted struct {
	BaseEvent

	Requester string `json:"requester"`
	Revision  int    `json:"revision"`
}

func (e RequestSubmitted) GetType() EventType { return RequestSubmittedEvent }

type RequestEvaluated struct {
	BaseEvent

	RiskScore  float64              `json:"risk_score"`
	Status     models.RequestStatus `json:"status"`
	Violations int                  `json:"violations"`
	Reasons    []string             `json:"reasons,omitempty"`
}

func (e RequestEvaluated) GetType() EventType { return RequestEvaluatedEvent }

type RequestApproved struct {
	BaseEvent

	Approver string `json:"approver"`
	Path     string `json:"path"` // auto, manual, enhanced
}

func (e RequestApproved) GetType() EventType { return RequestApprovedEvent }

type RequestRejected struct {
	BaseEvent

	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason"`
}

func (e RequestRejected) GetType() EventType { return RequestRejectedEvent }

type RequestChangesRequested struct {
	BaseEvent

	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason"`
	Revision int    `json:"revision"`
}

func (e RequestChangesRequested) GetType() EventType { return RequestChangesRequestedEvent }

type RequestCancelled struct {
	BaseEvent

	CancelledBy    string `json:"cancelled_by"`
	Reason         string `json:"reason"`
	TasksCancelled int    `json:"tasks_cancelled"`
}

func (e RequestCancelled) GetType() EventType { return RequestCancelledEvent }

// RequestConverged signals that every task of the request is terminal and the
// request is ready for deployment. Emitted exactly once per convergence.
type RequestConverged struct {
	BaseEvent

	TasksCompleted int           `json:"tasks_completed"`
	TasksCancelled int           `json:"tasks_cancelled"`
	Duration       time.Duration `json:"duration"`
}

func (e RequestConverged) GetType() EventType { return RequestConvergedEvent }

type RequestRolledBack struct {
	BaseEvent

	Track         models.Track `json:"track"`
	TasksReopened int          `json:"tasks_reopened"`
	Reason        string       `json:"reason"`
}

func (e RequestRolledBack) GetType() EventType { return RequestRolledBackEvent }

type TaskDispatched struct {
	BaseEvent

	TaskID string       `json:"task_id"`
	Track  models.Track `json:"track"`
	Name   string       `json:"name"`
}

func (e TaskDispatched) GetType() EventType { return TaskDispatchedEvent }

type TaskStatusChanged struct {
	BaseEvent

	TaskID    string            `json:"task_id"`
	OldStatus models.TaskStatus `json:"old_status"`
	NewStatus models.TaskStatus `json:"new_status"`
	Comment   string            `json:"comment,omitempty"`
}

func (e TaskStatusChanged) GetType() EventType { return TaskStatusChangedEvent }

// TaskEscalated signals a task that exhausted its retries and now requires a
// human.
type TaskEscalated struct {
	BaseEvent

	TaskID     string       `json:"task_id"`
	Track      models.Track `json:"track"`
	RetryCount int          `json:"retry_count"`
	Reason     string       `json:"reason"`
}

func (e TaskEscalated) GetType() EventType { return TaskEscalatedEvent }

// SLABreached signals an elapsed SLA clock with tasks still pending. Tasks are
// not cancelled; this event only drives escalation notifications.
type SLABreached struct {
	BaseEvent

	Priority     models.Priority `json:"priority"`
	SLA          time.Duration   `json:"sla"`
	Elapsed      time.Duration   `json:"elapsed"`
	TasksPending int             `json:"tasks_pending"`
}

func (e SLABreached) GetType() EventType { return SLABreachedEvent }

// DeploymentFailed is received from the external CI/CD collaborator and drives
// the rollback path.
type DeploymentFailed struct {
	BaseEvent

	Track  models.Track `json:"track"`
	Reason string       `json:"reason"`
}

func (e DeploymentFailed) GetType() EventType { return DeploymentFailedEvent }

// NotificationSent carries a human-facing notification to external delivery
// collaborators (email, ticketing).
type NotificationSent struct {
	BaseEvent

	TaskID    string         `json:"task_id,omitempty"`
	Recipient string         `json:"recipient,omitempty"`
	Channel   string         `json:"channel,omitempty"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

func (e NotificationSent) GetType() EventType { return NotificationSentEvent }
