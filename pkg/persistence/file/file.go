// Package file provides file-based persistence for requests, tasks and the
// audit trail, suitable for tests and single-node development.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/clearway/clearway/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root        string
	requestRepo *RequestRepository
	resultRepo  *ComplianceResultRepository
	taskRepo    *TaskRepository
	auditRepo   *AuditRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. A "file://" prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		requestRepo: NewRequestRepository(cleanRoot),
		resultRepo:  NewComplianceResultRepository(cleanRoot),
		taskRepo:    NewTaskRepository(cleanRoot),
		auditRepo:   NewAuditRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) RequestRepository() persistence.RequestRepository {
	return fp.requestRepo
}

func (fp *Persistence) ComplianceResultRepository() persistence.ComplianceResultRepository {
	return fp.resultRepo
}

func (fp *Persistence) TaskRepository() persistence.TaskRepository {
	return fp.taskRepo
}

func (fp *Persistence) AuditRepository() persistence.AuditRepository {
	return fp.auditRepo
}
