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

// AuditRepository stores one JSON file per audit entry under <root>/audit.
// Entries are append-only: files are written once and never rewritten or
// removed.
type AuditRepository struct {
	root string
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(root string) *AuditRepository {
	return &AuditRepository{root: root}
}

func (ar *AuditRepository) dir() string {
	return path.Join(ar.root, "audit")
}

// Append writes a new audit entry. An entry that already exists is a
// programming error and is rejected rather than overwritten.
func (ar *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if err := os.MkdirAll(ar.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	filePath := path.Join(ar.dir(), entry.ID+".json")
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("audit entry %s already exists", entry.ID)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry %s: %w", entry.ID, err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write audit entry %s: %w", entry.ID, err)
	}

	return nil
}

// ListByEntity returns all entries for an entity, oldest first.
func (ar *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	root := os.DirFS(ar.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list audit files: %w", err)
	}

	entries := make([]*models.AuditEntry, 0)

	for _, file := range jsonFiles {
		data, err := fs.ReadFile(root, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read audit file %s: %w", file, err)
		}

		var entry models.AuditEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to parse audit file %s: %w", file, err)
		}

		if entry.EntityType == entityType && entry.EntityID == entityID {
			entries = append(entries, &entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	return entries, nil
}
