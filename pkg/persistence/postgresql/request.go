package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/persistence"
)

// RequestRepository handles request-related database operations.
type RequestRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *sql.DB, logger *slog.Logger) *RequestRepository {
	return &RequestRepository{db: db, logger: logger}
}

const requestColumns = `
		id
	  , business_line
	  , application_type
	  , purpose
	  , technical_requirements
	  , compliance_requirements
	  , sla_requirements
	  , data_classification
	  , priority
	  , frameworks
	  , integration_count
	  , expected_users
	  , estimated_cost
	  , external_exposure
	  , target_date
	  , status
	  , risk_score
	  , pending_sign_offs
	  , revision
	  , requester
	  , created_at
	  , updated_at
	  , approved_at
`

// Save upserts a request.
func (r *RequestRepository) Save(ctx context.Context, request *models.Request) error {
	technical, err := json.Marshal(request.TechnicalRequirements)
	if err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	compliance, err := json.Marshal(request.ComplianceRequirements)
	if err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	sla, err := json.Marshal(request.SLARequirements)
	if err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	frameworks, err := json.Marshal(request.Frameworks)
	if err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	signOffs, err := json.Marshal(request.PendingSignOffs)
	if err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (id) DO UPDATE SET
			business_line = EXCLUDED.business_line,
			application_type = EXCLUDED.application_type,
			purpose = EXCLUDED.purpose,
			technical_requirements = EXCLUDED.technical_requirements,
			compliance_requirements = EXCLUDED.compliance_requirements,
			sla_requirements = EXCLUDED.sla_requirements,
			data_classification = EXCLUDED.data_classification,
			priority = EXCLUDED.priority,
			frameworks = EXCLUDED.frameworks,
			integration_count = EXCLUDED.integration_count,
			expected_users = EXCLUDED.expected_users,
			estimated_cost = EXCLUDED.estimated_cost,
			external_exposure = EXCLUDED.external_exposure,
			target_date = EXCLUDED.target_date,
			status = EXCLUDED.status,
			risk_score = EXCLUDED.risk_score,
			pending_sign_offs = EXCLUDED.pending_sign_offs,
			revision = EXCLUDED.revision,
			updated_at = EXCLUDED.updated_at,
			approved_at = EXCLUDED.approved_at
	`

	_, err = r.db.ExecContext(ctx, query,
		request.ID,
		request.BusinessLine,
		request.ApplicationType,
		request.Purpose,
		technical,
		compliance,
		sla,
		request.DataClassification,
		request.Priority,
		frameworks,
		request.IntegrationCount,
		request.ExpectedUsers,
		request.EstimatedCost,
		request.ExternalExposure,
		request.TargetDate,
		request.Status,
		request.RiskScore,
		signOffs,
		request.Revision,
		request.Requester,
		request.CreatedAt,
		request.UpdatedAt,
		request.ApprovedAt,
	)
	if err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	return nil
}

// GetByID loads a request by its identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	request, err := r.scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRequestError("GetByID", id, persistence.ErrRequestNotFound)
		}

		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	return request, nil
}

// List returns all requests, newest first.
func (r *RequestRepository) List(ctx context.Context) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests ORDER BY created_at DESC`

	return r.queryRequests(ctx, query)
}

// ListByStatus returns all requests currently in the given status.
func (r *RequestRepository) ListByStatus(ctx context.Context, status models.RequestStatus) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE status = $1 ORDER BY created_at DESC`

	return r.queryRequests(ctx, query, status)
}

func (r *RequestRepository) queryRequests(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	requests := make([]*models.Request, 0)

	for rows.Next() {
		request, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}

	return requests, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RequestRepository) scanRequest(row rowScanner) (*models.Request, error) {
	var (
		request    models.Request
		technical  []byte
		compliance []byte
		sla        []byte
		frameworks []byte
		signOffs   []byte
	)

	err := row.Scan(
		&request.ID,
		&request.BusinessLine,
		&request.ApplicationType,
		&request.Purpose,
		&technical,
		&compliance,
		&sla,
		&request.DataClassification,
		&request.Priority,
		&frameworks,
		&request.IntegrationCount,
		&request.ExpectedUsers,
		&request.EstimatedCost,
		&request.ExternalExposure,
		&request.TargetDate,
		&request.Status,
		&request.RiskScore,
		&signOffs,
		&request.Revision,
		&request.Requester,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(technical, &request.TechnicalRequirements); err != nil {
		return nil, fmt.Errorf("failed to parse technical requirements: %w", err)
	}

	if err := json.Unmarshal(compliance, &request.ComplianceRequirements); err != nil {
		return nil, fmt.Errorf("failed to parse compliance requirements: %w", err)
	}

	if err := json.Unmarshal(sla, &request.SLARequirements); err != nil {
		return nil, fmt.Errorf("failed to parse sla requirements: %w", err)
	}

	if err := json.Unmarshal(frameworks, &request.Frameworks); err != nil {
		return nil, fmt.Errorf("failed to parse frameworks: %w", err)
	}

	if err := json.Unmarshal(signOffs, &request.PendingSignOffs); err != nil {
		return nil, fmt.Errorf("failed to parse pending sign-offs: %w", err)
	}

	return &request, nil
}
