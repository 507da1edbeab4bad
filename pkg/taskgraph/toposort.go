package taskgraph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCyclicDependency indicates the derived edge set contains a cycle. This is
// a fatal configuration error: the request is held in construction_failed, not
// retried.
var ErrCyclicDependency = errors.New("cyclic task dependency")

// ErrUnknownDependency indicates an edge references a task that is not part of
// the graph.
var ErrUnknownDependency = errors.New("dependency references unknown task")

// TopologicalSort orders task IDs so every task appears after all of its
// dependencies (Kahn's algorithm). Ties are broken lexicographically so the
// order is deterministic.
func TopologicalSort(deps map[string][]string) ([]string, error) {
	indegree := make(map[string]int, len(deps))
	dependents := make(map[string][]string, len(deps))

	for id := range deps {
		indegree[id] = 0
	}

	for id, requires := range deps {
		for _, dep := range requires {
			if _, ok := deps[dep]; !ok {
				return nil, fmt.Errorf("%w: task %s depends on %s", ErrUnknownDependency, id, dep)
			}

			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	frontier := make([]string, 0, len(deps))
	for id, degree := range indegree {
		if degree == 0 {
			frontier = append(frontier, id)
		}
	}

	sort.Strings(frontier)

	order := make([]string, 0, len(deps))

	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		order = append(order, id)

		released := make([]string, 0)

		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				released = append(released, dependent)
			}
		}

		sort.Strings(released)
		frontier = append(frontier, released...)
	}

	if len(order) != len(deps) {
		return nil, ErrCyclicDependency
	}

	return order, nil
}
