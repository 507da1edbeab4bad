// Package taskgraph derives the acyclic multi-team task set for an approved
// onboarding request.
package taskgraph

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/models"
)

// Builder derives workflow tasks and their dependency edges from request
// attributes and the configured templates.
type Builder struct {
	cfg config.TaskGraphConfig
}

// NewBuilder creates a builder with the given configuration.
func NewBuilder(cfg config.TaskGraphConfig) *Builder {
	return &Builder{cfg: cfg}
}

// taskSpec is one templated task before IDs are assigned.
type taskSpec struct {
	key            string // stable key for intra-template dependency references
	track          models.Track
	name           string
	estimatedHours float64
	dependsOn      []string // keys
}

// Build derives the task DAG for an approved request. Track inclusion:
// infrastructure always; security iff external exposure or auth-sensitive
// data; compliance iff at least one framework applies; finance iff estimated
// cost exceeds the configured threshold. The edge set is validated acyclic
// before any task is created.
func (b *Builder) Build(request *models.Request) ([]*models.WorkflowTask, error) {
	specs := b.specsFor(request)

	byKey := make(map[string]*taskSpec, len(specs))
	deps := make(map[string][]string, len(specs))

	for i := range specs {
		spec := &specs[i]
		byKey[spec.key] = spec
		deps[spec.key] = append([]string(nil), spec.dependsOn...)
	}

	b.applyTemplateEdges(specs, deps)

	order, err := TopologicalSort(deps)
	if err != nil {
		return nil, fmt.Errorf("task graph for request %s: %w", request.ID, err)
	}

	now := time.Now().UTC()
	ids := make(map[string]string, len(specs))

	for _, key := range order {
		ids[key] = uuid.New().String()
	}

	tasks := make([]*models.WorkflowTask, 0, len(order))

	for _, key := range order {
		spec := byKey[key]

		dependsOn := make([]string, 0, len(deps[key]))
		for _, depKey := range deps[key] {
			dependsOn = append(dependsOn, ids[depKey])
		}

		tasks = append(tasks, &models.WorkflowTask{
			ID:             ids[key],
			RequestID:      request.ID,
			Track:          spec.track,
			Name:           spec.name,
			Status:         models.TaskStatusPending,
			DependsOn:      dependsOn,
			EstimatedHours: spec.estimatedHours,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	return tasks, nil
}

func (b *Builder) specsFor(request *models.Request) []taskSpec {
	financeGates := request.EstimatedCost > b.cfg.FinanceCostAbove

	specs := []taskSpec{
		{
			key:            "infra.provision",
			track:          models.TrackInfrastructure,
			name:           "Provision environment",
			estimatedHours: 16,
		},
		{
			key:            "infra.monitoring",
			track:          models.TrackInfrastructure,
			name:           "Configure monitoring and alerting",
			estimatedHours: 8,
			dependsOn:      []string{"infra.provision"},
		},
	}

	if request.ExternalExposure || request.AuthSensitive() {
		specs = append(specs,
			taskSpec{
				key:            "security.review",
				track:          models.TrackSecurity,
				name:           "Security architecture review",
				estimatedHours: 12,
			},
			taskSpec{
				key:            "security.access",
				track:          models.TrackSecurity,
				name:           "Provision access controls",
				estimatedHours: 6,
				dependsOn:      []string{"security.review"},
			},
		)
	}

	if len(request.Frameworks) > 0 {
		specs = append(specs, taskSpec{
			key:            "compliance.attestation",
			track:          models.TrackCompliance,
			name:           "Compliance attestation",
			estimatedHours: 10,
		})
	}

	if financeGates {
		specs = append(specs, taskSpec{
			key:            "finance.approval",
			track:          models.TrackFinance,
			name:           "Budget approval",
			estimatedHours: 4,
		})

		// Finance approval is a prerequisite for provisioning when the cost
		// exceeds the threshold.
		specs[0].dependsOn = append(specs[0].dependsOn, "finance.approval")
	}

	return specs
}

// applyTemplateEdges adds the explicitly configured cross-track dependencies:
// every task of the From track becomes a dependency of every task of the To
// track that does not already depend on it, directly or through the template.
func (b *Builder) applyTemplateEdges(specs []taskSpec, deps map[string][]string) {
	for _, edge := range b.cfg.TemplateEdges {
		for _, to := range specs {
			if to.track != edge.To {
				continue
			}

			for _, from := range specs {
				if from.track != edge.From || containsKey(deps[to.key], from.key) {
					continue
				}

				deps[to.key] = append(deps[to.key], from.key)
			}
		}
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}

	return false
}
