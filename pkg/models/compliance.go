package models

import "time"

// ComplianceStatus is the per-framework outcome of a compliance check.
type ComplianceStatus string

const (
	ComplianceStatusCompliant     ComplianceStatus = "compliant"
	ComplianceStatusNonCompliant  ComplianceStatus = "non_compliant"
	ComplianceStatusNotApplicable ComplianceStatus = "not_applicable"
)

// ViolationSeverity ranks a failed compliance rule. Critical violations force
// the enhanced review path regardless of risk score.
type ViolationSeverity string

const (
	SeverityLow      ViolationSeverity = "low"
	SeverityMedium   ViolationSeverity = "medium"
	SeverityHigh     ViolationSeverity = "high"
	SeverityCritical ViolationSeverity = "critical"
)

// Violation records a single failed rule within a framework evaluation.
type Violation struct {
	Rule     string            `json:"rule"`
	Severity ViolationSeverity `json:"severity"`
	Message  string            `json:"message"`
}

// ComplianceCheckResult is the immutable outcome of evaluating one framework
// against one request. Re-checks append a new record rather than mutating an
// existing one; the result with the latest CheckedAt is current.
type ComplianceCheckResult struct {
	ID               string           `json:"id"`
	RequestID        string           `json:"request_id"`
	Framework        string           `json:"framework"`
	Status           ComplianceStatus `json:"status"`
	Violations       []Violation      `json:"violations"`
	Recommendations  []string         `json:"recommendations"`
	RiskContribution float64          `json:"risk_contribution"`
	CheckedAt        time.Time        `json:"checked_at"`
}

// Compliant reports whether every rule of the framework passed.
func (r *ComplianceCheckResult) Compliant() bool {
	return r.Status == ComplianceStatusCompliant
}

// HasCriticalViolation reports whether any violation is tagged critical.
func (r *ComplianceCheckResult) HasCriticalViolation() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}

	return false
}
