package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/persistence"
)

// TaskRepository stores one JSON file per task under <root>/tasks, with an
// index from task ID to request ID kept implicit in the task payload.
type TaskRepository struct {
	root string
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(root string) *TaskRepository {
	return &TaskRepository{root: root}
}

func (tr *TaskRepository) dir() string {
	return path.Join(tr.root, "tasks")
}

// Save writes a single task.
func (tr *TaskRepository) Save(ctx context.Context, task *models.WorkflowTask) error {
	if err := os.MkdirAll(tr.dir(), 0o755); err != nil {
		return &persistence.TaskError{Op: "Save", RequestID: task.RequestID, TaskID: task.ID, Err: err}
	}

	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return &persistence.TaskError{Op: "Save", RequestID: task.RequestID, TaskID: task.ID, Err: err}
	}

	filePath := path.Join(tr.dir(), task.ID+".json")
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return &persistence.TaskError{Op: "Save", RequestID: task.RequestID, TaskID: task.ID, Err: err}
	}

	return nil
}

// SaveAll writes every task of a freshly built graph.
func (tr *TaskRepository) SaveAll(ctx context.Context, tasks []*models.WorkflowTask) error {
	for _, task := range tasks {
		if err := tr.Save(ctx, task); err != nil {
			return err
		}
	}

	return nil
}

// GetByID loads a task by its identifier.
func (tr *TaskRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTask, error) {
	data, err := os.ReadFile(path.Join(tr.dir(), id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &persistence.TaskError{Op: "GetByID", TaskID: id, Err: persistence.ErrTaskNotFound}
		}

		return nil, &persistence.TaskError{Op: "GetByID", TaskID: id, Err: err}
	}

	var task models.WorkflowTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, &persistence.TaskError{Op: "GetByID", TaskID: id, Err: err}
	}

	return &task, nil
}

// ListByRequest returns every task owned by a request, oldest first.
func (tr *TaskRepository) ListByRequest(ctx context.Context, requestID string) ([]*models.WorkflowTask, error) {
	root := os.DirFS(tr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list task files: %w", err)
	}

	tasks := make([]*models.WorkflowTask, 0)

	for _, file := range jsonFiles {
		id := file[:len(file)-5]

		task, err := tr.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if task.RequestID == requestID {
			tasks = append(tasks, task)
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks, nil
}
