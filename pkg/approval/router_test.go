package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/models"
)

func newTestRouter() *Router {
	return NewRouter(config.Default().Approval)
}

func compliantResult(framework string) *models.ComplianceCheckResult {
	return &models.ComplianceCheckResult{
		Framework: framework,
		Status:    models.ComplianceStatusCompliant,
	}
}

func TestRouter_AutoApprove(t *testing.T) {
	router := newTestRouter()

	request := &models.Request{RiskScore: 0.1}
	outcome := router.Route(request, nil)

	assert.Equal(t, models.RequestStatusAutoApproved, outcome.Status)
	assert.Empty(t, outcome.SignOffs)
}

func TestRouter_LowRiskWithViolationGoesToManualReview(t *testing.T) {
	router := newTestRouter()

	request := &models.Request{RiskScore: 0.1}
	results := []*models.ComplianceCheckResult{
		{
			Framework: "GDPR",
			Status:    models.ComplianceStatusNonCompliant,
			Violations: []models.Violation{
				{Rule: "retention_policy", Severity: models.SeverityHigh},
			},
		},
	}

	outcome := router.Route(request, results)
	assert.Equal(t, models.RequestStatusManualReview, outcome.Status)
}

func TestRouter_MidBandGoesToManualReview(t *testing.T) {
	router := newTestRouter()

	for _, score := range []float64{0.3, 0.5, 0.69} {
		request := &models.Request{RiskScore: score}
		outcome := router.Route(request, []*models.ComplianceCheckResult{compliantResult("GDPR")})
		assert.Equal(t, models.RequestStatusManualReview, outcome.Status, "score %v", score)
	}
}

func TestRouter_HighRiskGoesToEnhancedReview(t *testing.T) {
	router := newTestRouter()

	request := &models.Request{RiskScore: 0.7}
	outcome := router.Route(request, nil)

	assert.Equal(t, models.RequestStatusEnhancedReview, outcome.Status)
	assert.Equal(t, []string{StageSecurity, StageCompliance}, outcome.SignOffs)
}

func TestRouter_CriticalViolationForcesEnhancedReview(t *testing.T) {
	router := newTestRouter()

	request := &models.Request{RiskScore: 0.1}
	results := []*models.ComplianceCheckResult{
		{
			Framework: "GDPR",
			Status:    models.ComplianceStatusNonCompliant,
			Violations: []models.Violation{
				{Rule: "consent_mechanism", Severity: models.SeverityCritical},
			},
		},
	}

	outcome := router.Route(request, results)
	assert.Equal(t, models.RequestStatusEnhancedReview, outcome.Status)
	assert.Contains(t, outcome.Reasons, "critical compliance violation")
}

func TestRouter_ExecutiveSignOffAddedAboveCostThreshold(t *testing.T) {
	router := newTestRouter()

	request := &models.Request{RiskScore: 0.9, EstimatedCost: 300_000}
	outcome := router.Route(request, nil)

	assert.Equal(t, []string{StageSecurity, StageCompliance, StageExecutive}, outcome.SignOffs)
}

func TestRouter_Decide(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		decision Decision
		want     models.RequestStatus
	}{
		{DecisionApprove, models.RequestStatusApproved},
		{DecisionReject, models.RequestStatusRejected},
		{DecisionRequestChanges, models.RequestStatusNeedsChanges},
	}

	for _, tc := range tests {
		request := &models.Request{Status: models.RequestStatusManualReview}

		status, err := router.Decide(request, tc.decision)
		require.NoError(t, err)
		assert.Equal(t, tc.want, status)
	}
}

func TestRouter_DecideOutsideManualReviewFails(t *testing.T) {
	router := newTestRouter()

	request := &models.Request{Status: models.RequestStatusApproved}
	_, err := router.Decide(request, DecisionApprove)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRouter_SignOffSequence(t *testing.T) {
	router := newTestRouter()

	request := &models.Request{
		Status:          models.RequestStatusEnhancedReview,
		PendingSignOffs: []string{StageSecurity, StageCompliance},
	}

	// Compliance cannot sign before security.
	_, _, err := router.SignOff(request, StageCompliance, DecisionApprove)
	require.ErrorIs(t, err, ErrInvalidTransition)

	status, remaining, err := router.SignOff(request, StageSecurity, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusEnhancedReview, status)
	assert.Equal(t, []string{StageCompliance}, remaining)

	request.PendingSignOffs = remaining

	status, remaining, err = router.SignOff(request, StageCompliance, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, status)
	assert.Empty(t, remaining)
}

func TestRouter_SignOffRejectEndsReview(t *testing.T) {
	router := newTestRouter()

	request := &models.Request{
		Status:          models.RequestStatusEnhancedReview,
		PendingSignOffs: []string{StageSecurity, StageCompliance},
	}

	status, _, err := router.SignOff(request, StageSecurity, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, status)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.RequestStatusSubmitted, models.RequestStatusEvaluating))
	assert.True(t, CanTransition(models.RequestStatusNeedsChanges, models.RequestStatusSubmitted))
	assert.True(t, CanTransition(models.RequestStatusApproved, models.RequestStatusInProgress))
	assert.True(t, CanTransition(models.RequestStatusInProgress, models.RequestStatusRolledBack))

	// No backward transitions outside the needs_changes loop.
	assert.False(t, CanTransition(models.RequestStatusApproved, models.RequestStatusManualReview))
	assert.False(t, CanTransition(models.RequestStatusCompleted, models.RequestStatusInProgress))
	assert.False(t, CanTransition(models.RequestStatusRejected, models.RequestStatusApproved))
}
