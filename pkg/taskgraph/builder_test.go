package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/models"
)

func tracksOf(tasks []*models.WorkflowTask) map[models.Track]int {
	counts := make(map[models.Track]int)
	for _, task := range tasks {
		counts[task.Track]++
	}

	return counts
}

func taskByName(tasks []*models.WorkflowTask, name string) *models.WorkflowTask {
	for _, task := range tasks {
		if task.Name == name {
			return task
		}
	}

	return nil
}

func TestBuilder_MinimalRequestGetsOnlyInfrastructure(t *testing.T) {
	builder := NewBuilder(config.Default().TaskGraph)

	request := &models.Request{
		ID:                 "req-1",
		DataClassification: models.ClassificationPublic,
	}

	tasks, err := builder.Build(request)
	require.NoError(t, err)

	counts := tracksOf(tasks)
	assert.Equal(t, 2, counts[models.TrackInfrastructure])
	assert.Zero(t, counts[models.TrackSecurity])
	assert.Zero(t, counts[models.TrackCompliance])
	assert.Zero(t, counts[models.TrackFinance])
}

func TestBuilder_FullRequestGetsAllTracksWithFinanceGate(t *testing.T) {
	builder := NewBuilder(config.Default().TaskGraph)

	request := &models.Request{
		ID:                 "req-2",
		DataClassification: models.ClassificationRestricted,
		ExternalExposure:   true,
		Frameworks:         []string{"GDPR", "PCI-DSS"},
		EstimatedCost:      200_000,
	}

	tasks, err := builder.Build(request)
	require.NoError(t, err)

	counts := tracksOf(tasks)
	assert.Equal(t, 2, counts[models.TrackInfrastructure])
	assert.Equal(t, 2, counts[models.TrackSecurity])
	assert.Equal(t, 1, counts[models.TrackCompliance])
	assert.Equal(t, 1, counts[models.TrackFinance])

	// Finance approval gates provisioning above the cost threshold.
	provision := taskByName(tasks, "Provision environment")
	finance := taskByName(tasks, "Budget approval")
	require.NotNil(t, provision)
	require.NotNil(t, finance)
	assert.Contains(t, provision.DependsOn, finance.ID)
}

func TestBuilder_NoFinanceGateBelowThreshold(t *testing.T) {
	builder := NewBuilder(config.Default().TaskGraph)

	request := &models.Request{
		ID:                 "req-3",
		DataClassification: models.ClassificationInternal,
		EstimatedCost:      10_000,
	}

	tasks, err := builder.Build(request)
	require.NoError(t, err)

	provision := taskByName(tasks, "Provision environment")
	require.NotNil(t, provision)
	assert.Empty(t, provision.DependsOn)
	assert.Nil(t, taskByName(tasks, "Budget approval"))
}

func TestBuilder_DependenciesReferenceTasksInGraph(t *testing.T) {
	builder := NewBuilder(config.Default().TaskGraph)

	request := &models.Request{
		ID:                 "req-4",
		DataClassification: models.ClassificationRestricted,
		ExternalExposure:   true,
		Frameworks:         []string{"GDPR"},
		EstimatedCost:      100_000,
	}

	tasks, err := builder.Build(request)
	require.NoError(t, err)

	ids := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		ids[task.ID] = true
	}

	for _, task := range tasks {
		for _, dep := range task.DependsOn {
			assert.True(t, ids[dep], "task %s depends on %s outside the graph", task.ID, dep)
		}
	}
}

func TestBuilder_TasksReturnedInTopologicalOrder(t *testing.T) {
	builder := NewBuilder(config.Default().TaskGraph)

	request := &models.Request{
		ID:                 "req-5",
		DataClassification: models.ClassificationRestricted,
		ExternalExposure:   true,
		Frameworks:         []string{"GDPR"},
		EstimatedCost:      100_000,
	}

	tasks, err := builder.Build(request)
	require.NoError(t, err)

	seen := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		for _, dep := range task.DependsOn {
			assert.True(t, seen[dep], "dependency %s of %s not yet seen", dep, task.Name)
		}

		seen[task.ID] = true
	}
}

func TestBuilder_TemplateEdgeCycleDetected(t *testing.T) {
	cfg := config.Default().TaskGraph
	// security -> infrastructure plus infrastructure -> security closes a loop.
	cfg.TemplateEdges = []config.TemplateEdge{
		{From: models.TrackSecurity, To: models.TrackInfrastructure},
		{From: models.TrackInfrastructure, To: models.TrackSecurity},
	}

	builder := NewBuilder(cfg)

	request := &models.Request{
		ID:                 "req-6",
		DataClassification: models.ClassificationRestricted,
	}

	_, err := builder.Build(request)
	require.ErrorIs(t, err, ErrCyclicDependency)
}

func TestTopologicalSort(t *testing.T) {
	order, err := TopologicalSort(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTopologicalSort_Cycle(t *testing.T) {
	_, err := TopologicalSort(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})
	require.ErrorIs(t, err, ErrCyclicDependency)
}

func TestTopologicalSort_UnknownDependency(t *testing.T) {
	_, err := TopologicalSort(map[string][]string{
		"a": {"ghost"},
	})
	require.ErrorIs(t, err, ErrUnknownDependency)
}
