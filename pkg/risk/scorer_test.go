package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/models"
)

func newTestScorer() *Scorer {
	return NewScorer(config.Default().Risk)
}

func TestScorer_PublicRequestScoresZero(t *testing.T) {
	scorer := newTestScorer()

	score, err := scorer.Score(Inputs{
		Classification:   models.ClassificationPublic,
		IntegrationCount: 0,
		FrameworkCount:   0,
		EstimatedCost:    0,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestScorer_RestrictedHeavyRequestScoresHigh(t *testing.T) {
	scorer := newTestScorer()

	score, err := scorer.Score(Inputs{
		Classification:   models.ClassificationRestricted,
		IntegrationCount: 6,
		FrameworkCount:   2,
		EstimatedCost:    400_000,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.7)
	assert.LessOrEqual(t, score, 1.0)
}

func TestScorer_OutputAlwaysInUnitInterval(t *testing.T) {
	scorer := newTestScorer()

	cases := []Inputs{
		{models.ClassificationPublic, 0, 0, 0},
		{models.ClassificationInternal, 3, 1, 10_000},
		{models.ClassificationConfidential, 100, 50, 1e9},
		{models.ClassificationRestricted, 8, 4, 500_000},
	}

	for _, in := range cases {
		score, err := scorer.Score(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestScorer_Deterministic(t *testing.T) {
	scorer := newTestScorer()

	in := Inputs{
		Classification:   models.ClassificationConfidential,
		IntegrationCount: 4,
		FrameworkCount:   2,
		EstimatedCost:    120_000,
	}

	first, err := scorer.Score(in)
	require.NoError(t, err)

	second, err := scorer.Score(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScorer_WeightedSum(t *testing.T) {
	scorer := newTestScorer()

	// Restricted classification alone contributes exactly the sensitivity weight.
	score, err := scorer.Score(Inputs{
		Classification: models.ClassificationRestricted,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.40, score, 1e-9)
}

func TestScorer_InvalidInputs(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		name string
		in   Inputs
	}{
		{
			name: "negative integration count",
			in:   Inputs{Classification: models.ClassificationPublic, IntegrationCount: -1},
		},
		{
			name: "negative framework count",
			in:   Inputs{Classification: models.ClassificationPublic, FrameworkCount: -2},
		},
		{
			name: "negative cost",
			in:   Inputs{Classification: models.ClassificationPublic, EstimatedCost: -5},
		},
		{
			name: "unknown classification",
			in:   Inputs{Classification: "secret"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scorer.Score(tc.in)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestInputsFromRequest(t *testing.T) {
	request := &models.Request{
		DataClassification: models.ClassificationInternal,
		IntegrationCount:   3,
		Frameworks:         []string{"GDPR", "PCI-DSS"},
		EstimatedCost:      75_000,
	}

	in := InputsFromRequest(request)

	assert.Equal(t, models.ClassificationInternal, in.Classification)
	assert.Equal(t, 3, in.IntegrationCount)
	assert.Equal(t, 2, in.FrameworkCount)
	assert.InDelta(t, 75_000.0, in.EstimatedCost, 1e-9)
}
