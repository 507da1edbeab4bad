package approval

import "github.com/clearway/clearway/pkg/models"

// allowed is the request status transition table. Transitions are monotonic
// with one deliberate loop: needs_changes returns to submitted for another
// input-collection round.
var allowed = map[models.RequestStatus][]models.RequestStatus{
	models.RequestStatusSubmitted: {
		models.RequestStatusEvaluating,
		models.RequestStatusCancelled,
	},
	models.RequestStatusEvaluating: {
		models.RequestStatusAutoApproved,
		models.RequestStatusManualReview,
		models.RequestStatusEnhancedReview,
		models.RequestStatusRejected,
		models.RequestStatusCancelled,
	},
	models.RequestStatusAutoApproved: {
		models.RequestStatusApproved,
	},
	models.RequestStatusManualReview: {
		models.RequestStatusApproved,
		models.RequestStatusRejected,
		models.RequestStatusNeedsChanges,
		models.RequestStatusCancelled,
	},
	models.RequestStatusEnhancedReview: {
		models.RequestStatusEnhancedReview, // next sign-off stage
		models.RequestStatusApproved,
		models.RequestStatusRejected,
		models.RequestStatusNeedsChanges,
		models.RequestStatusCancelled,
	},
	models.RequestStatusNeedsChanges: {
		models.RequestStatusSubmitted,
		models.RequestStatusCancelled,
	},
	models.RequestStatusApproved: {
		models.RequestStatusInProgress,
		models.RequestStatusConstructionFailed,
		models.RequestStatusCancelled,
	},
	models.RequestStatusInProgress: {
		models.RequestStatusCompleted,
		models.RequestStatusRolledBack,
		models.RequestStatusCancelled,
	},
	models.RequestStatusConstructionFailed: {
		models.RequestStatusApproved, // operator fixed the template configuration
		models.RequestStatusCancelled,
	},
	models.RequestStatusRolledBack: {
		models.RequestStatusInProgress, // re-opened track tasks resume
	},
	models.RequestStatusCompleted: {
		models.RequestStatusRolledBack, // deployment failed after convergence
	},
}

// CanTransition reports whether moving a request from one status to another is
// legal.
func CanTransition(from, to models.RequestStatus) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}

	return false
}
