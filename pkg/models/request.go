// Package models defines the core domain models for onboarding request orchestration.
package models

import "time"

// DataClassification is the sensitivity tier of the data a request touches.
type DataClassification string

const (
	ClassificationPublic       DataClassification = "public"
	ClassificationInternal     DataClassification = "internal"
	ClassificationConfidential DataClassification = "confidential"
	ClassificationRestricted   DataClassification = "restricted"
)

// Priority drives the SLA clock duration for an approved request.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// RequestStatus represents the lifecycle state of an onboarding request.
//
// Transitions are monotonic with one exception: needs_changes loops back to
// input collection, bumping the request revision so the audit trail spans
// iterations.
type RequestStatus string

const (
	RequestStatusSubmitted          RequestStatus = "submitted"
	RequestStatusEvaluating         RequestStatus = "evaluating"
	RequestStatusAutoApproved       RequestStatus = "auto_approved"
	RequestStatusManualReview       RequestStatus = "manual_review"
	RequestStatusEnhancedReview     RequestStatus = "enhanced_review"
	RequestStatusApproved           RequestStatus = "approved"
	RequestStatusRejected           RequestStatus = "rejected"
	RequestStatusNeedsChanges       RequestStatus = "needs_changes"
	RequestStatusInProgress         RequestStatus = "in_progress"
	RequestStatusConstructionFailed RequestStatus = "construction_failed"
	RequestStatusCompleted          RequestStatus = "completed"
	RequestStatusRolledBack         RequestStatus = "rolled_back"
	RequestStatusCancelled          RequestStatus = "cancelled"
)

// Request is an onboarding request flowing through evaluation, approval and
// orchestration. RiskScore is always within [0,1] once evaluated.
type Request struct {
	ID                     string             `json:"id"`
	BusinessLine           string             `json:"business_line"           validate:"required"`
	ApplicationType        string             `json:"application_type"        validate:"required"`
	Purpose                string             `json:"purpose"                 validate:"required"`
	TechnicalRequirements  map[string]any     `json:"technical_requirements"`
	ComplianceRequirements map[string]any     `json:"compliance_requirements"`
	SLARequirements        map[string]any     `json:"sla_requirements"`
	DataClassification     DataClassification `json:"data_classification"     validate:"required,oneof=public internal confidential restricted"`
	Priority               Priority           `json:"priority"                validate:"required,oneof=critical high medium low"`
	Frameworks             []string           `json:"frameworks"`
	IntegrationCount       int                `json:"integration_count"       validate:"min=0"`
	ExpectedUsers          int                `json:"expected_users"          validate:"min=0"`
	EstimatedCost          float64            `json:"estimated_cost"          validate:"min=0"`
	ExternalExposure       bool               `json:"external_exposure"`
	TargetDate             *time.Time         `json:"target_date,omitempty"`
	Status                 RequestStatus      `json:"status"`
	RiskScore              float64            `json:"risk_score"`
	PendingSignOffs        []string           `json:"pending_sign_offs,omitempty"`
	Revision               int                `json:"revision"`
	Requester              string             `json:"requester"               validate:"required"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
	ApprovedAt             *time.Time         `json:"approved_at,omitempty"`
}

// Terminal reports whether the request needs no further orchestration work.
// A completed request can still be rolled back by a deployment failure.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestStatusRejected, RequestStatusCompleted, RequestStatusCancelled:
		return true
	default:
		return false
	}
}

// Known reports whether s is one of the defined lifecycle statuses.
func (s RequestStatus) Known() bool {
	switch s {
	case RequestStatusSubmitted, RequestStatusEvaluating, RequestStatusAutoApproved,
		RequestStatusManualReview, RequestStatusEnhancedReview, RequestStatusApproved,
		RequestStatusRejected, RequestStatusNeedsChanges, RequestStatusInProgress,
		RequestStatusConstructionFailed, RequestStatusCompleted, RequestStatusRolledBack,
		RequestStatusCancelled:
		return true
	default:
		return false
	}
}

// AuthSensitive reports whether the request handles authentication-sensitive
// data, which forces the security track into the task graph.
func (r *Request) AuthSensitive() bool {
	return r.DataClassification == ClassificationConfidential ||
		r.DataClassification == ClassificationRestricted
}
