package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/approval"
	"github.com/clearway/clearway/pkg/compliance"
	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/dispatch"
	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/log"
	"github.com/clearway/clearway/pkg/mocks"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/notify"
	"github.com/clearway/clearway/pkg/orchestrator"
	"github.com/clearway/clearway/pkg/persistence/file"
	"github.com/clearway/clearway/pkg/testutil"
)

type serviceHarness struct {
	service     *Request
	persistence *file.Persistence
	dispatcher  *dispatch.MemoryDispatcher
	publisher   *testutil.CapturePublisher
	sink        *notify.MemorySink
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	logger := log.WithModule("test")
	cfg := config.Default()

	registry := compliance.NewRegistry(logger)

	h := &serviceHarness{
		persistence: file.NewPersistence(t.TempDir()),
		dispatcher:  dispatch.NewMemoryDispatcher(),
		publisher:   testutil.NewCapturePublisher(),
		sink:        notify.NewMemorySink(),
	}

	engine := orchestrator.NewEngine(h.persistence, h.dispatcher, h.publisher, h.sink, cfg, logger)
	t.Cleanup(engine.Stop)

	h.service = NewRequest(h.persistence, registry, engine, h.publisher, h.sink, cfg, logger)

	return h
}

func submission(overrides ...func(*models.Request)) *models.Request {
	request := testutil.CreateTestRequest(overrides...)
	request.ID = ""
	request.Status = ""

	return request
}

// A public, zero-integration, zero-framework, low-cost request auto-approves
// and produces only the infrastructure track.
func TestSubmitAutoApprovalPath(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	request := submission(testutil.WithClassification(models.ClassificationPublic))
	request.IntegrationCount = 0
	request.EstimatedCost = 1_000

	stored, err := h.service.Submit(ctx, request)
	require.NoError(t, err)

	assert.Less(t, stored.RiskScore, 0.05)
	assert.Equal(t, models.RequestStatusInProgress, stored.Status)
	require.NotNil(t, stored.ApprovedAt)

	approved := h.publisher.OfType(events.RequestApprovedEvent)
	require.Len(t, approved, 1)
	assert.Equal(t, "auto", approved[0].(events.RequestApproved).Path)

	tasks, err := h.persistence.TaskRepository().ListByRequest(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	for _, task := range tasks {
		assert.Equal(t, models.TrackInfrastructure, task.Track)
	}
}

// A restricted, heavily integrated request over the finance threshold routes
// to enhanced review; after the sign-off chain all four tracks are created and
// finance gates provisioning.
func TestSubmitEnhancedReviewPath(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	request := submission(
		testutil.WithClassification(models.ClassificationRestricted),
		testutil.WithFrameworks(compliance.FrameworkGDPR, compliance.FrameworkPCI),
		testutil.WithCost(100_000),
	)
	request.IntegrationCount = 6
	request.ComplianceRequirements = map[string]any{
		"consent_mechanism":          true,
		"retention_policy":           true,
		"deletion_capability":        true,
		"portability_support":        true,
		"processing_purpose":         "payment onboarding",
		"cardholder_data_encryption": true,
		"network_segmentation":       true,
		"vulnerability_scanning":     true,
		"no_pan_storage":             true,
	}

	stored, err := h.service.Submit(ctx, request)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, stored.RiskScore, 0.7)
	assert.Equal(t, models.RequestStatusEnhancedReview, stored.Status)
	assert.Equal(t, []string{approval.StageSecurity, approval.StageCompliance}, stored.PendingSignOffs)

	for _, stage := range []string{approval.StageSecurity, approval.StageCompliance} {
		stored, err = h.service.Decide(ctx, &DecideInput{
			RequestID: stored.ID,
			Decision:  approval.DecisionApprove,
			Stage:     stage,
			Reviewer:  stage + "-lead",
		})
		require.NoError(t, err)
	}

	assert.Equal(t, models.RequestStatusInProgress, stored.Status)

	tasks, err := h.persistence.TaskRepository().ListByRequest(ctx, stored.ID)
	require.NoError(t, err)

	byName := map[string]*models.WorkflowTask{}
	tracks := map[models.Track]bool{}

	for _, task := range tasks {
		byName[task.Name] = task
		tracks[task.Track] = true
	}

	for _, track := range []models.Track{
		models.TrackSecurity, models.TrackInfrastructure,
		models.TrackCompliance, models.TrackFinance,
	} {
		assert.True(t, tracks[track], "missing track %s", track)
	}

	provision := byName["Provision environment"]
	finance := byName["Budget approval"]
	require.NotNil(t, provision)
	require.NotNil(t, finance)
	assert.Contains(t, provision.DependsOn, finance.ID)
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	h := newServiceHarness(t)

	request := submission()
	request.BusinessLine = ""

	_, err := h.service.Submit(context.Background(), request)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestSubmitUnknownFrameworkFails(t *testing.T) {
	h := newServiceHarness(t)

	request := submission(testutil.WithFrameworks("FEDRAMP"))

	_, err := h.service.Submit(context.Background(), request)
	require.Error(t, err)
	assert.True(t, IsOperatorError(err))
}

func TestManualReviewDecision(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	request := submission(
		testutil.WithClassification(models.ClassificationConfidential),
		testutil.WithCost(100_000),
	)
	request.IntegrationCount = 4

	stored, err := h.service.Submit(ctx, request)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusManualReview, stored.Status)

	stored, err = h.service.Decide(ctx, &DecideInput{
		RequestID: stored.ID,
		Decision:  approval.DecisionApprove,
		Reviewer:  "reviewer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, stored.Status)

	approved := h.publisher.OfType(events.RequestApprovedEvent)
	require.Len(t, approved, 1)
	assert.Equal(t, "manual", approved[0].(events.RequestApproved).Path)
}

func TestNeedsChangesResubmitBumpsRevision(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	request := submission(
		testutil.WithClassification(models.ClassificationConfidential),
		testutil.WithCost(100_000),
	)
	request.IntegrationCount = 4

	stored, err := h.service.Submit(ctx, request)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusManualReview, stored.Status)

	stored, err = h.service.Decide(ctx, &DecideInput{
		RequestID: stored.ID,
		Decision:  approval.DecisionRequestChanges,
		Reviewer:  "reviewer@example.com",
		Reason:    "cost estimate missing breakdown",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusNeedsChanges, stored.Status)

	updated := submission(testutil.WithClassification(models.ClassificationPublic))
	updated.IntegrationCount = 0
	updated.EstimatedCost = 1_000

	stored, err = h.service.Resubmit(ctx, stored.ID, updated)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Revision)
	assert.Equal(t, models.RequestStatusInProgress, stored.Status)

	trail, err := h.service.AuditTrail(ctx, stored.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, trail)
}

func TestDecideOnUnreviewableRequestConflicts(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	request := submission(testutil.WithClassification(models.ClassificationPublic))
	request.IntegrationCount = 0
	request.EstimatedCost = 1_000

	stored, err := h.service.Submit(ctx, request)
	require.NoError(t, err)

	_, err = h.service.Decide(ctx, &DecideInput{
		RequestID: stored.ID,
		Decision:  approval.DecisionApprove,
		Reviewer:  "reviewer@example.com",
	})
	require.Error(t, err)
	assert.True(t, IsConflictError(err))
}

func TestCancelBeforeApproval(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	request := submission(
		testutil.WithClassification(models.ClassificationConfidential),
		testutil.WithCost(100_000),
	)
	request.IntegrationCount = 4

	stored, err := h.service.Submit(ctx, request)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusManualReview, stored.Status)

	stored, err = h.service.Cancel(ctx, stored.ID, "operator", "duplicate request")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, stored.Status)
}

func TestGetReturnsFullDetails(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	request := submission(
		testutil.WithClassification(models.ClassificationPublic),
		testutil.WithFrameworks(compliance.FrameworkSOX),
	)
	request.IntegrationCount = 0
	request.EstimatedCost = 1_000
	request.ComplianceRequirements = map[string]any{
		"change_management":     true,
		"segregation_of_duties": true,
		"financial_audit_trail": true,
	}

	stored, err := h.service.Submit(ctx, request)
	require.NoError(t, err)

	details, err := h.service.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, details.Request.ID)
	require.Len(t, details.ComplianceResults, 1)
	assert.Equal(t, compliance.FrameworkSOX, details.ComplianceResults[0].Framework)
	assert.NotEmpty(t, details.Tasks)
}

func TestGetUnknownRequest(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestFrameworksListing(t *testing.T) {
	h := newServiceHarness(t)

	infos := h.service.Frameworks()
	require.Len(t, infos, 4)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
		assert.NotEmpty(t, info.Rules)
	}

	assert.Contains(t, names, compliance.FrameworkGDPR)
	assert.Contains(t, names, compliance.FrameworkPCI)
}

func TestTaskCallbackThroughService(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	request := submission(testutil.WithClassification(models.ClassificationPublic))
	request.IntegrationCount = 0
	request.EstimatedCost = 1_000

	stored, err := h.service.Submit(ctx, request)
	require.NoError(t, err)

	tasks, err := h.persistence.TaskRepository().ListByRequest(ctx, stored.ID)
	require.NoError(t, err)
	require.NotEmpty(t, tasks)

	var ready *models.WorkflowTask

	for _, task := range tasks {
		if len(task.DependsOn) == 0 {
			ready = task
		}
	}

	require.NotNil(t, ready)

	updated, err := h.service.TaskCallback(ctx, &orchestrator.Callback{
		TaskID: ready.ID,
		Status: models.TaskStatusInProgress,
		Actor:  "infra-team",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, updated.Status)
	require.NotNil(t, updated.StartedAt)
	assert.WithinDuration(t, time.Now().UTC(), *updated.StartedAt, time.Minute)
}

func TestSubmitToleratesPublishFailure(t *testing.T) {
	ctx := context.Background()
	logger := log.WithModule("test")
	cfg := config.Default()

	registry := compliance.NewRegistry(logger)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	persistence := file.NewPersistence(t.TempDir())
	sink := notify.NewMemorySink()

	engine := orchestrator.NewEngine(persistence, dispatch.NewMemoryDispatcher(), bus, sink, cfg, logger)
	t.Cleanup(engine.Stop)

	service := NewRequest(persistence, registry, engine, bus, sink, cfg, logger)

	request := submission(testutil.WithClassification(models.ClassificationPublic))
	request.IntegrationCount = 0
	request.EstimatedCost = 1_000

	stored, err := service.Submit(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, stored.Status)

	bus.AssertCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
