package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/clearway/clearway/pkg/models"
)

// ComplianceResultRepository stores one JSON file per check result under
// <root>/results/<request-id>. Results are append-only; files are never
// rewritten.
type ComplianceResultRepository struct {
	root string
}

// NewComplianceResultRepository creates a new compliance result repository.
func NewComplianceResultRepository(root string) *ComplianceResultRepository {
	return &ComplianceResultRepository{root: root}
}

func (cr *ComplianceResultRepository) dir(requestID string) string {
	return path.Join(cr.root, "results", requestID)
}

// Append writes a new result record.
func (cr *ComplianceResultRepository) Append(ctx context.Context, result *models.ComplianceCheckResult) error {
	dir := cr.dir(result.RequestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal compliance result %s: %w", result.ID, err)
	}

	filePath := path.Join(dir, result.ID+".json")
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write compliance result %s: %w", result.ID, err)
	}

	return nil
}

// ListByRequest returns the full append-only history for a request, oldest
// first.
func (cr *ComplianceResultRepository) ListByRequest(ctx context.Context, requestID string) ([]*models.ComplianceCheckResult, error) {
	root := os.DirFS(cr.dir(requestID))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list result files: %w", err)
	}

	results := make([]*models.ComplianceCheckResult, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		data, err := fs.ReadFile(root, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read result file %s: %w", file, err)
		}

		var result models.ComplianceCheckResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to parse result file %s: %w", file, err)
		}

		results = append(results, &result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CheckedAt.Before(results[j].CheckedAt)
	})

	return results, nil
}

// CurrentByRequest returns the latest result per framework.
func (cr *ComplianceResultRepository) CurrentByRequest(ctx context.Context, requestID string) ([]*models.ComplianceCheckResult, error) {
	history, err := cr.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*models.ComplianceCheckResult)
	order := make([]string, 0)

	for _, result := range history {
		if _, seen := latest[result.Framework]; !seen {
			order = append(order, result.Framework)
		}

		latest[result.Framework] = result
	}

	current := make([]*models.ComplianceCheckResult, 0, len(order))
	for _, framework := range order {
		current = append(current, latest[framework])
	}

	return current, nil
}
