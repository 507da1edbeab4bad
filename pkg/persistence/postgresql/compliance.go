package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/clearway/clearway/pkg/models"
)

// ComplianceResultRepository stores compliance check results. Results are
// append-only; a re-evaluation inserts new rows instead of updating old ones.
type ComplianceResultRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewComplianceResultRepository creates a new compliance result repository.
func NewComplianceResultRepository(db *sql.DB, logger *slog.Logger) *ComplianceResultRepository {
	return &ComplianceResultRepository{db: db, logger: logger}
}

// Append inserts a new check result.
func (r *ComplianceResultRepository) Append(ctx context.Context, result *models.ComplianceCheckResult) error {
	violations, err := json.Marshal(result.Violations)
	if err != nil {
		return fmt.Errorf("failed to serialize violations: %w", err)
	}

	recommendations, err := json.Marshal(result.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to serialize recommendations: %w", err)
	}

	query := `
		INSERT INTO compliance_results (
			id
		  , request_id
		  , framework
		  , status
		  , violations
		  , recommendations
		  , risk_contribution
		  , checked_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		result.ID,
		result.RequestID,
		result.Framework,
		result.Status,
		violations,
		recommendations,
		result.RiskContribution,
		result.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert compliance result: %w", err)
	}

	return nil
}

// ListByRequest returns every recorded result for the request, oldest first.
func (r *ComplianceResultRepository) ListByRequest(ctx context.Context, requestID string) ([]*models.ComplianceCheckResult, error) {
	query := `
		SELECT
			id
		  , request_id
		  , framework
		  , status
		  , violations
		  , recommendations
		  , risk_contribution
		  , checked_at
		FROM compliance_results
		WHERE request_id = $1
		ORDER BY checked_at ASC
	`

	return r.queryResults(ctx, query, requestID)
}

// CurrentByRequest returns the latest result per framework for the request.
func (r *ComplianceResultRepository) CurrentByRequest(ctx context.Context, requestID string) ([]*models.ComplianceCheckResult, error) {
	query := `
		SELECT DISTINCT ON (framework)
			id
		  , request_id
		  , framework
		  , status
		  , violations
		  , recommendations
		  , risk_contribution
		  , checked_at
		FROM compliance_results
		WHERE request_id = $1
		ORDER BY framework, checked_at DESC
	`

	return r.queryResults(ctx, query, requestID)
}

func (r *ComplianceResultRepository) queryResults(ctx context.Context, query string, args ...any) ([]*models.ComplianceCheckResult, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query compliance results: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	results := make([]*models.ComplianceCheckResult, 0)

	for rows.Next() {
		var (
			result          models.ComplianceCheckResult
			violations      []byte
			recommendations []byte
		)

		err := rows.Scan(
			&result.ID,
			&result.RequestID,
			&result.Framework,
			&result.Status,
			&violations,
			&recommendations,
			&result.RiskContribution,
			&result.CheckedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compliance result: %w", err)
		}

		if err := json.Unmarshal(violations, &result.Violations); err != nil {
			return nil, fmt.Errorf("failed to parse violations: %w", err)
		}

		if err := json.Unmarshal(recommendations, &result.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to parse recommendations: %w", err)
		}

		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating compliance results: %w", err)
	}

	return results, nil
}
