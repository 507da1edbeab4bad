package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an append-only record of a state-changing operation. Entries
// are never mutated or deleted.
type AuditEntry struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewAuditEntry builds an entry for one state change with the timestamp set.
func NewAuditEntry(actor, action, entityType, entityID string, before, after map[string]any) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New().String(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     before,
		After:      after,
		Timestamp:  time.Now().UTC(),
	}
}
