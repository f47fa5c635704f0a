// Package sessions provides the session persistence contract, an in-memory
// store, and the per-session lock manager that serializes runs.
package sessions

import (
	"context"
	"time"

	"github.com/maestro-agents/maestro/pkg/models"
)

// Meta is cheap session metadata used for cache keys and defaults
// resolution.
type Meta struct {
	SessionID     string
	AgentID       string
	Values        map[string]any
	MessageCount  int
	LastMessageID string
	UpdatedAt     time.Time
}

// Store is the session persistence collaborator contract.
type Store interface {
	// Append stores a message. Missing fields (id, created_at) are filled
	// in; the stored message is returned.
	Append(ctx context.Context, sessionID string, msg *models.Message) (*models.Message, error)

	// Messages returns the session history in append order.
	Messages(ctx context.Context, sessionID string) ([]*models.Message, error)

	// Metadata returns session metadata without loading messages.
	Metadata(ctx context.Context, sessionID string) (*Meta, error)
}
