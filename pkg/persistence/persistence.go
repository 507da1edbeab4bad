// Package persistence provides the data storage abstraction for requests,
// compliance results, workflow tasks and the audit trail.
package persistence

import (
	"context"

	"github.com/clearway/clearway/pkg/models"
)

type Persistence interface {
	RequestRepository() RequestRepository
	ComplianceResultRepository() ComplianceResultRepository
	TaskRepository() TaskRepository
	AuditRepository() AuditRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RequestRepository stores onboarding requests. Requests are retained
// indefinitely; there is no hard deletion.
type RequestRepository interface {
	Save(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context) ([]*models.Request, error)
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]*models.Request, error)
}

// ComplianceResultRepository stores check results append-only: re-checks add
// new records, existing records are never updated.
type ComplianceResultRepository interface {
	Append(ctx context.Context, result *models.ComplianceCheckResult) error
	ListByRequest(ctx context.Context, requestID string) ([]*models.ComplianceCheckResult, error)
	// CurrentByRequest returns the latest result per framework.
	CurrentByRequest(ctx context.Context, requestID string) ([]*models.ComplianceCheckResult, error)
}

// TaskRepository stores workflow tasks.
type TaskRepository interface {
	Save(ctx context.Context, task *models.WorkflowTask) error
	SaveAll(ctx context.Context, tasks []*models.WorkflowTask) error
	GetByID(ctx context.Context, id string) (*models.WorkflowTask, error)
	ListByRequest(ctx context.Context, requestID string) ([]*models.WorkflowTask, error)
}

// AuditRepository is the append-only audit sink. Entries are never mutated or
// deleted.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error)
}
