package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/persistence"
	"github.com/clearway/clearway/pkg/persistence/postgresql"
	"github.com/clearway/clearway/pkg/testutil"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"audit_entries", "workflow_tasks", "compliance_results", "requests", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if os.Getenv("CLEARWAY_INTEGRATION_TESTS") == "" {
		t.Skip("set CLEARWAY_INTEGRATION_TESTS to run PostgreSQL integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("clearway_test"),
			postgres.WithUsername("clearway"),
			postgres.WithPassword("clearway"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx
}

func TestRequestRoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.RequestRepository()

	request := testutil.CreateTestRequest(testutil.WithFrameworks("GDPR", "PCI-DSS"))
	require.NoError(t, repo.Save(ctx, request))

	loaded, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, loaded.ID)
	assert.Equal(t, request.Frameworks, loaded.Frameworks)
	assert.Equal(t, request.Status, loaded.Status)

	// Upsert updates rather than duplicating.
	request.Status = models.RequestStatusEvaluating
	require.NoError(t, repo.Save(ctx, request))

	loaded, err = repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusEvaluating, loaded.Status)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRequestNotFound(t *testing.T) {
	p, ctx := setupTestDB(t)

	_, err := p.RequestRepository().GetByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsRequestNotFound(err))
}

func TestTaskSaveAllAndList(t *testing.T) {
	p, ctx := setupTestDB(t)

	request := testutil.CreateTestRequest()
	require.NoError(t, p.RequestRepository().Save(ctx, request))

	first := testutil.CreateTestTask(request.ID, testutil.WithTrack(models.TrackSecurity))
	second := testutil.CreateTestTask(request.ID, testutil.WithDependsOn(first.ID))

	require.NoError(t, p.TaskRepository().SaveAll(ctx, []*models.WorkflowTask{first, second}))

	tasks, err := p.TaskRepository().ListByRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	loaded, err := p.TaskRepository().GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, loaded.DependsOn)
}

func TestComplianceResultHistory(t *testing.T) {
	p, ctx := setupTestDB(t)

	request := testutil.CreateTestRequest()
	require.NoError(t, p.RequestRepository().Save(ctx, request))

	repo := p.ComplianceResultRepository()

	older := &models.ComplianceCheckResult{
		ID:        "res-1",
		RequestID: request.ID,
		Framework: "GDPR",
		Status:    models.ComplianceStatusNonCompliant,
		CheckedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &models.ComplianceCheckResult{
		ID:        "res-2",
		RequestID: request.ID,
		Framework: "GDPR",
		Status:    models.ComplianceStatusCompliant,
		CheckedAt: time.Now().UTC(),
	}

	require.NoError(t, repo.Append(ctx, older))
	require.NoError(t, repo.Append(ctx, newer))

	history, err := repo.ListByRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "res-1", history[0].ID)

	current, err := repo.CurrentByRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "res-2", current[0].ID)
}

func TestAuditTrailOrdering(t *testing.T) {
	p, ctx := setupTestDB(t)

	request := testutil.CreateTestRequest()
	require.NoError(t, p.RequestRepository().Save(ctx, request))

	repo := p.AuditRepository()

	first := models.NewAuditEntry("tester", "request_submitted", "request", request.ID, nil, nil)
	first.Timestamp = time.Now().UTC().Add(-time.Minute)

	second := models.NewAuditEntry("tester", "request_evaluated", "request", request.ID, nil, map[string]any{
		"risk_score": 0.42,
	})

	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	entries, err := repo.ListByEntity(ctx, "request", request.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "request_submitted", entries[0].Action)
	assert.Equal(t, "request_evaluated", entries[1].Action)
}
