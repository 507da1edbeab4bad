// Package web provides the HTTP API for onboarding request orchestration.
package web

import (
	"time"

	"github.com/clearway/clearway/pkg/models"
)

// SubmitRequest is the request body for submitting an onboarding request.
type SubmitRequest struct {
	BusinessLine           string         `json:"business_line"           validate:"required"`
	ApplicationType        string         `json:"application_type"        validate:"required"`
	Purpose                string         `json:"purpose"                 validate:"required"`
	TechnicalRequirements  map[string]any `json:"technical_requirements"`
	ComplianceRequirements map[string]any `json:"compliance_requirements"`
	SLARequirements        map[string]any `json:"sla_requirements"`
	DataClassification     string         `json:"data_classification"     validate:"required,oneof=public internal confidential restricted"`
	Priority               string         `json:"priority"                validate:"required,oneof=critical high medium low"`
	Frameworks             []string       `json:"frameworks"`
	IntegrationCount       int            `json:"integration_count"       validate:"min=0"`
	ExpectedUsers          int            `json:"expected_users"          validate:"min=0"`
	EstimatedCost          float64        `json:"estimated_cost"          validate:"min=0"`
	ExternalExposure       bool           `json:"external_exposure"`
	TargetDate             *time.Time     `json:"target_date,omitempty"`
	Requester              string         `json:"requester"               validate:"required,email"`
}

// ToModel converts the request body into the domain model.
func (r *SubmitRequest) ToModel() *models.Request {
	return &models.Request{
		BusinessLine:           r.BusinessLine,
		ApplicationType:        r.ApplicationType,
		Purpose:                r.Purpose,
		TechnicalRequirements:  r.TechnicalRequirements,
		ComplianceRequirements: r.ComplianceRequirements,
		SLARequirements:        r.SLARequirements,
		DataClassification:     models.DataClassification(r.DataClassification),
		Priority:               models.Priority(r.Priority),
		Frameworks:             r.Frameworks,
		IntegrationCount:       r.IntegrationCount,
		ExpectedUsers:          r.ExpectedUsers,
		EstimatedCost:          r.EstimatedCost,
		ExternalExposure:       r.ExternalExposure,
		TargetDate:             r.TargetDate,
		Requester:              r.Requester,
	}
}

// DecisionRequest is the request body for review decisions and sign-offs.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject request_changes"`
	Stage    string `json:"stage"    validate:"omitempty,oneof=security compliance executive"`
	Reviewer string `json:"reviewer" validate:"required"`
	Reason   string `json:"reason"`
}

// CancelRequest is the request body for cancelling a request.
type CancelRequest struct {
	Actor  string `json:"actor"  validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

// TaskCallbackRequest is the status report body from a team's ticketing
// collaborator.
type TaskCallbackRequest struct {
	Status      string  `json:"status"       validate:"required,oneof=pending in_progress completed blocked cancelled"`
	ActualHours float64 `json:"actual_hours" validate:"min=0"`
	Comment     string  `json:"comment"`
	Actor       string  `json:"actor"`
}

// DeploymentFailedRequest reports a failed deployment for rollback.
type DeploymentFailedRequest struct {
	Track  string `json:"track"  validate:"required,oneof=security infrastructure compliance finance"`
	Reason string `json:"reason" validate:"required"`
}
