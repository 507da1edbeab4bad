package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/clearway/clearway/pkg/models"
)

// AuditRepository stores audit entries. The table is insert-only; no update or
// delete statement exists in this package.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Append inserts an audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	before, err := json.Marshal(entry.Before)
	if err != nil {
		return fmt.Errorf("failed to serialize before snapshot: %w", err)
	}

	after, err := json.Marshal(entry.After)
	if err != nil {
		return fmt.Errorf("failed to serialize after snapshot: %w", err)
	}

	query := `
		INSERT INTO audit_entries (
			id
		  , actor
		  , action
		  , entity_type
		  , entity_id
		  , before
		  , after
		  , timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Actor,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		before,
		after,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// ListByEntity returns the audit trail for one entity in chronological order.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	query := `
		SELECT
			id
		  , actor
		  , action
		  , entity_type
		  , entity_id
		  , before
		  , after
		  , timestamp
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.AuditEntry, 0)

	for rows.Next() {
		var (
			entry  models.AuditEntry
			before []byte
			after  []byte
		)

		err := rows.Scan(
			&entry.ID,
			&entry.Actor,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&before,
			&after,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if len(before) > 0 {
			if err := json.Unmarshal(before, &entry.Before); err != nil {
				return nil, fmt.Errorf("failed to parse before snapshot: %w", err)
			}
		}

		if len(after) > 0 {
			if err := json.Unmarshal(after, &entry.After); err != nil {
				return nil, fmt.Errorf("failed to parse after snapshot: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
