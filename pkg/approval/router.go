// Package approval routes evaluated requests through the approval state
// machine: auto-approval, manual review or enhanced review with sequential
// sign-offs.
package approval

import (
	"errors"
	"fmt"

	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/models"
)

// ErrInvalidTransition indicates a decision that is not legal from the
// request's current state.
var ErrInvalidTransition = errors.New("invalid approval transition")

// Decision is a human review resolution.
type Decision string

const (
	DecisionApprove        Decision = "approve"
	DecisionReject         Decision = "reject"
	DecisionRequestChanges Decision = "request_changes"
)

// Sign-off stages of the enhanced review path, in required order.
const (
	StageSecurity   = "security"
	StageCompliance = "compliance"
	StageExecutive  = "executive"
)

// Outcome is the routing result for an evaluated request.
type Outcome struct {
	Status   models.RequestStatus
	SignOffs []string // remaining enhanced-review stages, in order
	Reasons  []string
}

// Router applies the configured thresholds. It is stateless; review progress
// lives on the request itself.
type Router struct {
	cfg config.ApprovalConfig
}

// NewRouter creates a router with the given thresholds.
func NewRouter(cfg config.ApprovalConfig) *Router {
	return &Router{cfg: cfg}
}

// Route maps a risk score and compliance outcome to an approval path.
//
// risk < auto threshold with every framework compliant routes to
// auto_approved. risk at or above the enhanced threshold, or any critical
// violation, routes to enhanced_review. Everything between routes to
// manual_review.
func (r *Router) Route(request *models.Request, results []*models.ComplianceCheckResult) Outcome {
	allCompliant := true
	critical := false

	for _, result := range results {
		if !result.Compliant() && result.Status != models.ComplianceStatusNotApplicable {
			allCompliant = false
		}

		if result.HasCriticalViolation() {
			critical = true
		}
	}

	score := request.RiskScore

	if critical || score >= r.cfg.EnhancedReviewAbove {
		outcome := Outcome{
			Status:   models.RequestStatusEnhancedReview,
			SignOffs: []string{StageSecurity, StageCompliance},
		}

		if request.EstimatedCost > r.cfg.ExecutiveCostAbove {
			outcome.SignOffs = append(outcome.SignOffs, StageExecutive)
		}

		if critical {
			outcome.Reasons = append(outcome.Reasons, "critical compliance violation")
		}

		if score >= r.cfg.EnhancedReviewAbove {
			outcome.Reasons = append(outcome.Reasons, fmt.Sprintf("risk score %.2f at or above %.2f", score, r.cfg.EnhancedReviewAbove))
		}

		return outcome
	}

	if score < r.cfg.AutoApproveBelow && allCompliant {
		return Outcome{
			Status:  models.RequestStatusAutoApproved,
			Reasons: []string{fmt.Sprintf("risk score %.2f below %.2f with no violations", score, r.cfg.AutoApproveBelow)},
		}
	}

	reasons := []string{fmt.Sprintf("risk score %.2f requires human review", score)}
	if !allCompliant {
		reasons = append(reasons, "compliance violations present")
	}

	return Outcome{
		Status:  models.RequestStatusManualReview,
		Reasons: reasons,
	}
}

// Decide resolves a manual review. needs_changes loops the request back to
// input collection; the caller bumps the revision.
func (r *Router) Decide(request *models.Request, decision Decision) (models.RequestStatus, error) {
	if request.Status != models.RequestStatusManualReview {
		return "", fmt.Errorf("%w: decision %q on request in status %q", ErrInvalidTransition, decision, request.Status)
	}

	switch decision {
	case DecisionApprove:
		return models.RequestStatusApproved, nil
	case DecisionReject:
		return models.RequestStatusRejected, nil
	case DecisionRequestChanges:
		return models.RequestStatusNeedsChanges, nil
	default:
		return "", fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, decision)
	}
}

// SignOff applies one enhanced-review stage decision. Stages are strictly
// sequential: security, then compliance, then executive when required. Only
// when the last pending stage approves does the request reach approved.
func (r *Router) SignOff(request *models.Request, stage string, decision Decision) (models.RequestStatus, []string, error) {
	if request.Status != models.RequestStatusEnhancedReview {
		return "", nil, fmt.Errorf("%w: sign-off on request in status %q", ErrInvalidTransition, request.Status)
	}

	if len(request.PendingSignOffs) == 0 {
		return "", nil, fmt.Errorf("%w: no pending sign-offs", ErrInvalidTransition)
	}

	expected := request.PendingSignOffs[0]
	if stage != expected {
		return "", nil, fmt.Errorf("%w: expected %s sign-off, got %s", ErrInvalidTransition, expected, stage)
	}

	switch decision {
	case DecisionReject:
		return models.RequestStatusRejected, nil, nil
	case DecisionRequestChanges:
		return models.RequestStatusNeedsChanges, nil, nil
	case DecisionApprove:
		remaining := request.PendingSignOffs[1:]
		if len(remaining) == 0 {
			return models.RequestStatusApproved, nil, nil
		}

		return models.RequestStatusEnhancedReview, remaining, nil
	default:
		return "", nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, decision)
	}
}
