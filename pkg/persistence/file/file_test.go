package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/persistence"
	"github.com/clearway/clearway/pkg/testutil"
)

func TestRequestRepositorySaveAndGet(t *testing.T) {
	repo := NewRequestRepository(t.TempDir())
	ctx := context.Background()

	request := testutil.CreateTestRequest()
	require.NoError(t, repo.Save(ctx, request))

	loaded, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, loaded.ID)
	assert.Equal(t, request.Status, loaded.Status)
	assert.Equal(t, request.DataClassification, loaded.DataClassification)
}

func TestRequestRepositoryGetUnknownID(t *testing.T) {
	repo := NewRequestRepository(t.TempDir())

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsRequestNotFound(err))
}

func TestRequestRepositoryListNewestFirst(t *testing.T) {
	repo := NewRequestRepository(t.TempDir())
	ctx := context.Background()

	older := testutil.CreateTestRequest()
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)

	newer := testutil.CreateTestRequest()
	newer.CreatedAt = time.Now().UTC()

	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	requests, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, newer.ID, requests[0].ID)
	assert.Equal(t, older.ID, requests[1].ID)
}

func TestRequestRepositoryListByStatus(t *testing.T) {
	repo := NewRequestRepository(t.TempDir())
	ctx := context.Background()

	submitted := testutil.CreateTestRequest()
	inProgress := testutil.CreateTestRequest(testutil.WithStatus(models.RequestStatusInProgress))

	require.NoError(t, repo.Save(ctx, submitted))
	require.NoError(t, repo.Save(ctx, inProgress))

	requests, err := repo.ListByStatus(ctx, models.RequestStatusInProgress)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, inProgress.ID, requests[0].ID)
}

func TestRequestRepositoryListEmptyDirectory(t *testing.T) {
	repo := NewRequestRepository(t.TempDir())

	requests, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestTaskRepositorySaveAllAndListByRequest(t *testing.T) {
	repo := NewTaskRepository(t.TempDir())
	ctx := context.Background()

	first := testutil.CreateTestTask("req-1")
	second := testutil.CreateTestTask("req-1", testutil.WithDependsOn(first.ID))
	other := testutil.CreateTestTask("req-2")

	require.NoError(t, repo.SaveAll(ctx, []*models.WorkflowTask{first, second, other}))

	tasks, err := repo.ListByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	loaded, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, loaded.DependsOn)
}

func TestTaskRepositoryGetUnknownID(t *testing.T) {
	repo := NewTaskRepository(t.TempDir())

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsTaskNotFound(err))
}

func TestComplianceResultRepositoryHistoryAndCurrent(t *testing.T) {
	repo := NewComplianceResultRepository(t.TempDir())
	ctx := context.Background()

	older := &models.ComplianceCheckResult{
		ID:        "res-1",
		RequestID: "req-1",
		Framework: "GDPR",
		Status:    models.ComplianceStatusNonCompliant,
		CheckedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &models.ComplianceCheckResult{
		ID:        "res-2",
		RequestID: "req-1",
		Framework: "GDPR",
		Status:    models.ComplianceStatusCompliant,
		CheckedAt: time.Now().UTC(),
	}

	require.NoError(t, repo.Append(ctx, older))
	require.NoError(t, repo.Append(ctx, newer))

	history, err := repo.ListByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "res-1", history[0].ID)

	current, err := repo.CurrentByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "res-2", current[0].ID)
	assert.Equal(t, models.ComplianceStatusCompliant, current[0].Status)
}

func TestAuditRepositoryAppendOnly(t *testing.T) {
	repo := NewAuditRepository(t.TempDir())
	ctx := context.Background()

	entry := models.NewAuditEntry("tester", "request_submitted", "request", "req-1", nil, map[string]any{
		"status": "submitted",
	})

	require.NoError(t, repo.Append(ctx, entry))
	require.Error(t, repo.Append(ctx, entry))

	entries, err := repo.ListByEntity(ctx, "request", "req-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "request_submitted", entries[0].Action)
}

func TestAuditRepositoryOrderedOldestFirst(t *testing.T) {
	repo := NewAuditRepository(t.TempDir())
	ctx := context.Background()

	first := models.NewAuditEntry("tester", "request_submitted", "request", "req-1", nil, nil)
	first.Timestamp = time.Now().UTC().Add(-time.Hour)

	second := models.NewAuditEntry("tester", "request_evaluated", "request", "req-1", nil, nil)

	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	entries, err := repo.ListByEntity(ctx, "request", "req-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "request_submitted", entries[0].Action)
	assert.Equal(t, "request_evaluated", entries[1].Action)
}

func TestPersistenceHealthCheck(t *testing.T) {
	ctx := context.Background()

	healthy := NewPersistence(t.TempDir())
	require.NoError(t, healthy.HealthCheck(ctx))

	missing := NewPersistence("/nonexistent/clearway-data")
	require.Error(t, missing.HealthCheck(ctx))
}
