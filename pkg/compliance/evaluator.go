package compliance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearway/clearway/pkg/models"
)

// Evaluator runs framework evaluations against requests. Evaluation of
// distinct frameworks runs concurrently; rules within one framework run
// sequentially so the violation list keeps rule order.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator creates an evaluator backed by the given registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate checks the request against every framework it names. All frameworks
// are resolved up front so an unknown name fails the whole evaluation before
// any result is produced.
func (e *Evaluator) Evaluate(ctx context.Context, request *models.Request) ([]*models.ComplianceCheckResult, error) {
	frameworks := make([]Framework, 0, len(request.Frameworks))

	for _, name := range request.Frameworks {
		fw, err := e.registry.Get(name)
		if err != nil {
			return nil, err
		}

		frameworks = append(frameworks, fw)
	}

	results := make([]*models.ComplianceCheckResult, len(frameworks))

	var wg sync.WaitGroup
	for i, fw := range frameworks {
		wg.Add(1)

		go func(i int, fw Framework) {
			defer wg.Done()

			results[i] = e.evaluateFramework(fw, request)
		}(i, fw)
	}

	wg.Wait()

	return results, nil
}

// evaluateFramework runs every rule of one framework. Short-circuiting is
// disabled: all rules are always evaluated to produce a complete violation
// list.
func (e *Evaluator) evaluateFramework(fw Framework, request *models.Request) *models.ComplianceCheckResult {
	result := &models.ComplianceCheckResult{
		ID:        uuid.New().String(),
		RequestID: request.ID,
		Framework: fw.Name,
		Status:    models.ComplianceStatusCompliant,
		CheckedAt: time.Now().UTC(),
	}

	if len(fw.Rules) == 0 {
		result.Status = models.ComplianceStatusNotApplicable

		return result
	}

	var violatedWeight, totalWeight float64

	for _, rule := range fw.Rules {
		totalWeight += severityWeight(rule.Severity)

		if rule.Check(request) {
			continue
		}

		violatedWeight += severityWeight(rule.Severity)
		result.Violations = append(result.Violations, models.Violation{
			Rule:     rule.Name,
			Severity: rule.Severity,
			Message:  rule.Message,
		})
		result.Recommendations = append(result.Recommendations, rule.Recommendation)
	}

	if len(result.Violations) > 0 {
		result.Status = models.ComplianceStatusNonCompliant
	}

	if totalWeight > 0 {
		result.RiskContribution = violatedWeight / totalWeight
	}

	return result
}
