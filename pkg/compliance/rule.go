// Package compliance evaluates onboarding requests against named regulatory
// frameworks and produces append-only check results.
package compliance

import (
	"github.com/clearway/clearway/pkg/models"
)

// Predicate is a named boolean check over request fields. Predicates must be
// pure: absence of a field is a failed check, never an error.
type Predicate func(r *models.Request) bool

// Rule is a single named compliance check within a framework.
type Rule struct {
	Name           string
	Severity       models.ViolationSeverity
	Message        string
	Recommendation string
	Check          Predicate
}

// Framework is an ordered list of rules evaluated sequentially, with
// short-circuiting disabled so the full violation list is always produced.
type Framework struct {
	Name  string
	Rules []Rule
}

// RequireFlag builds a predicate that passes when the given compliance
// requirement field is present and true. Missing or non-boolean values fail.
func RequireFlag(field string) Predicate {
	return func(r *models.Request) bool {
		if r.ComplianceRequirements == nil {
			return false
		}

		v, ok := r.ComplianceRequirements[field].(bool)

		return ok && v
	}
}

// RequirePresent builds a predicate that passes when the given compliance
// requirement field exists with a non-empty string value.
func RequirePresent(field string) Predicate {
	return func(r *models.Request) bool {
		if r.ComplianceRequirements == nil {
			return false
		}

		s, ok := r.ComplianceRequirements[field].(string)

		return ok && s != ""
	}
}

func severityWeight(s models.ViolationSeverity) float64 {
	switch s {
	case models.SeverityCritical:
		return 1.0
	case models.SeverityHigh:
		return 0.75
	case models.SeverityMedium:
		return 0.5
	case models.SeverityLow:
		return 0.25
	default:
		return 0.5
	}
}
