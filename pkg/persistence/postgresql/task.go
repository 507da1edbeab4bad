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

// TaskRepository handles workflow task database operations.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB, logger *slog.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `
		id
	  , request_id
	  , track
	  , name
	  , status
	  , depends_on
	  , estimated_hours
	  , actual_hours
	  , assignee
	  , comments
	  , retry_count
	  , started_at
	  , completed_at
	  , created_at
	  , updated_at
`

// Save upserts a single task.
func (r *TaskRepository) Save(ctx context.Context, task *models.WorkflowTask) error {
	return r.saveTx(ctx, r.db, task)
}

// SaveAll upserts tasks atomically so a partially built graph is never visible.
func (r *TaskRepository) SaveAll(ctx context.Context, tasks []*models.WorkflowTask) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, task := range tasks {
		if err := r.saveTx(ctx, tx, task); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rbErr)
			}

			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *TaskRepository) saveTx(ctx context.Context, db execer, task *models.WorkflowTask) error {
	dependsOn, err := json.Marshal(task.DependsOn)
	if err != nil {
		return persistence.NewTaskError("Save", task.RequestID, task.ID, err)
	}

	comments, err := json.Marshal(task.Comments)
	if err != nil {
		return persistence.NewTaskError("Save", task.RequestID, task.ID, err)
	}

	query := `
		INSERT INTO workflow_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			depends_on = EXCLUDED.depends_on,
			estimated_hours = EXCLUDED.estimated_hours,
			actual_hours = EXCLUDED.actual_hours,
			assignee = EXCLUDED.assignee,
			comments = EXCLUDED.comments,
			retry_count = EXCLUDED.retry_count,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = db.ExecContext(ctx, query,
		task.ID,
		task.RequestID,
		task.Track,
		task.Name,
		task.Status,
		dependsOn,
		task.EstimatedHours,
		task.ActualHours,
		task.Assignee,
		comments,
		task.RetryCount,
		task.StartedAt,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return persistence.NewTaskError("Save", task.RequestID, task.ID, err)
	}

	return nil
}

// GetByID loads a task by its identifier.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTask, error) {
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE id = $1`

	task, err := r.scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTaskError("GetByID", "", id, persistence.ErrTaskNotFound)
		}

		return nil, persistence.NewTaskError("GetByID", "", id, err)
	}

	return task, nil
}

// ListByRequest returns every task of the request, oldest first.
func (r *TaskRepository) ListByRequest(ctx context.Context, requestID string) ([]*models.WorkflowTask, error) {
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE request_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	tasks := make([]*models.WorkflowTask, 0)

	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) scanTask(row rowScanner) (*models.WorkflowTask, error) {
	var (
		task      models.WorkflowTask
		dependsOn []byte
		comments  []byte
		assignee  sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.RequestID,
		&task.Track,
		&task.Name,
		&task.Status,
		&dependsOn,
		&task.EstimatedHours,
		&task.ActualHours,
		&assignee,
		&comments,
		&task.RetryCount,
		&task.StartedAt,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Assignee = assignee.String

	if err := json.Unmarshal(dependsOn, &task.DependsOn); err != nil {
		return nil, fmt.Errorf("failed to parse dependencies: %w", err)
	}

	if err := json.Unmarshal(comments, &task.Comments); err != nil {
		return nil, fmt.Errorf("failed to parse comments: %w", err)
	}

	return &task, nil
}
