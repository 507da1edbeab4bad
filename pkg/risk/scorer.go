// Package risk computes the weighted risk score for an onboarding request.
package risk

import (
	"errors"
	"fmt"

	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/models"
)

// ErrInvalidInput indicates a scoring input outside its declared domain.
var ErrInvalidInput = errors.New("invalid scoring input")

// Scorer is a pure, deterministic risk scorer. It holds only immutable
// configuration and is safe for concurrent use.
type Scorer struct {
	cfg config.RiskConfig
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(cfg config.RiskConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Inputs are the raw factors of a risk score.
type Inputs struct {
	Classification   models.DataClassification
	IntegrationCount int
	FrameworkCount   int
	EstimatedCost    float64
}

// InputsFromRequest extracts the scoring inputs from a request.
func InputsFromRequest(r *models.Request) Inputs {
	return Inputs{
		Classification:   r.DataClassification,
		IntegrationCount: r.IntegrationCount,
		FrameworkCount:   len(r.Frameworks),
		EstimatedCost:    r.EstimatedCost,
	}
}

// Score produces a risk score in [0,1] as a fixed weighted sum of normalized
// factors. Scoring the same inputs twice yields identical output.
func (s *Scorer) Score(in Inputs) (float64, error) {
	sensitivity, err := classificationFactor(in.Classification)
	if err != nil {
		return 0, err
	}

	if in.IntegrationCount < 0 {
		return 0, fmt.Errorf("%w: integration count %d is negative", ErrInvalidInput, in.IntegrationCount)
	}

	if in.FrameworkCount < 0 {
		return 0, fmt.Errorf("%w: framework count %d is negative", ErrInvalidInput, in.FrameworkCount)
	}

	if in.EstimatedCost < 0 {
		return 0, fmt.Errorf("%w: estimated cost %v is negative", ErrInvalidInput, in.EstimatedCost)
	}

	integration := saturate(float64(in.IntegrationCount), float64(s.cfg.IntegrationSaturation))
	regulatory := saturate(float64(in.FrameworkCount), float64(s.cfg.FrameworkSaturation))
	impact := saturate(in.EstimatedCost, s.cfg.CostCap)

	w := s.cfg.Weights
	score := w.DataSensitivity*sensitivity +
		w.IntegrationComplexity*integration +
		w.RegulatoryScope*regulatory +
		w.BusinessImpact*impact

	return clamp01(score), nil
}

func classificationFactor(c models.DataClassification) (float64, error) {
	switch c {
	case models.ClassificationPublic:
		return 0.0, nil
	case models.ClassificationInternal:
		return 0.33, nil
	case models.ClassificationConfidential:
		return 0.66, nil
	case models.ClassificationRestricted:
		return 1.0, nil
	default:
		return 0, fmt.Errorf("%w: unknown data classification %q", ErrInvalidInput, c)
	}
}

// saturate normalizes a raw value to [0,1] against its saturation point.
func saturate(value, cap float64) float64 {
	if cap <= 0 {
		return 0
	}

	return clamp01(value / cap)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
