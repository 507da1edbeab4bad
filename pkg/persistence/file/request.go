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

// RequestRepository stores one JSON file per request under <root>/requests.
type RequestRepository struct {
	root string
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(root string) *RequestRepository {
	return &RequestRepository{root: root}
}

func (rr *RequestRepository) dir() string {
	return path.Join(rr.root, "requests")
}

// Save writes the request to disk, creating the directory on first use.
func (rr *RequestRepository) Save(ctx context.Context, request *models.Request) error {
	if err := os.MkdirAll(rr.dir(), 0o755); err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	data, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	filePath := path.Join(rr.dir(), request.ID+".json")
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return persistence.NewRequestError("Save", request.ID, err)
	}

	return nil
}

// GetByID loads a request by its identifier.
func (rr *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	data, err := os.ReadFile(path.Join(rr.dir(), id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewRequestError("GetByID", id, persistence.ErrRequestNotFound)
		}

		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	var request models.Request
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, persistence.NewRequestError("GetByID", id, err)
	}

	return &request, nil
}

// List returns all requests ordered by creation time, newest first.
func (rr *RequestRepository) List(ctx context.Context) ([]*models.Request, error) {
	root := os.DirFS(rr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list request files: %w", err)
	}

	requests := make([]*models.Request, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-5] // strip .json

		request, err := rr.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		requests = append(requests, request)
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})

	return requests, nil
}

// ListByStatus returns all requests currently in the given status.
func (rr *RequestRepository) ListByStatus(ctx context.Context, status models.RequestStatus) ([]*models.Request, error) {
	all, err := rr.List(ctx)
	if err != nil {
		return nil, err
	}

	requests := make([]*models.Request, 0)

	for _, request := range all {
		if request.Status == status {
			requests = append(requests, request)
		}
	}

	return requests, nil
}
