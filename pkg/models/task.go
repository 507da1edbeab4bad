package models

import "time"

// Track groups related tasks by the team that owns them.
type Track string

const (
	TrackSecurity       Track = "security"
	TrackInfrastructure Track = "infrastructure"
	TrackCompliance     Track = "compliance"
	TrackFinance        Track = "finance"
)

// TaskStatus represents the lifecycle state of a workflow task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the status counts toward convergence.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// WorkflowTask is a single unit of team work derived from an approved request.
// A task may move to in_progress only once every task in DependsOn is completed.
type WorkflowTask struct {
	ID             string     `json:"id"`
	RequestID      string     `json:"request_id"`
	Track          Track      `json:"track"`
	Name           string     `json:"name"`
	Status         TaskStatus `json:"status"`
	DependsOn      []string   `json:"depends_on"`
	EstimatedHours float64    `json:"estimated_hours"`
	ActualHours    float64    `json:"actual_hours"`
	Assignee       string     `json:"assignee,omitempty"`
	Comments       []string   `json:"comments,omitempty"`
	RetryCount     int        `json:"retry_count"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
