package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maestro-agents/maestro/pkg/models"
)

// MemoryStore is a concurrency-safe in-memory session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

type memorySession struct {
	agentID  string
	values   map[string]any
	messages []*models.Message
	updated  time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

// Append stores a message, filling in id, timestamps, and parent linkage.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, msg *models.Message) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		sess = &memorySession{values: make(map[string]any)}
		s.sessions[sessionID] = sess
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.SessionID = sessionID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.ParentID == "" && len(sess.messages) > 0 {
		stored.ParentID = sess.messages[len(sess.messages)-1].ID
	}

	sess.messages = append(sess.messages, &stored)
	sess.updated = stored.CreatedAt
	return &stored, nil
}

// Messages returns a copy of the session history in append order.
func (s *MemoryStore) Messages(ctx context.Context, sessionID string) ([]*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		return nil, nil
	}
	out := make([]*models.Message, len(sess.messages))
	copy(out, sess.messages)
	return out, nil
}

// Metadata returns metadata for the session; unknown sessions return empty
// metadata rather than an error.
func (s *MemoryStore) Metadata(ctx context.Context, sessionID string) (*Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	meta := &Meta{SessionID: sessionID, Values: map[string]any{}}
	sess := s.sessions[sessionID]
	if sess == nil {
		return meta, nil
	}
	meta.AgentID = sess.agentID
	for k, v := range sess.values {
		meta.Values[k] = v
	}
	meta.MessageCount = len(sess.messages)
	if n := len(sess.messages); n > 0 {
		meta.LastMessageID = sess.messages[n-1].ID
	}
	meta.UpdatedAt = sess.updated
	return meta, nil
}

// SetMetadata sets a metadata value, creating the session if needed.
func (s *MemoryStore) SetMetadata(sessionID, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		sess = &memorySession{values: make(map[string]any)}
		s.sessions[sessionID] = sess
	}
	sess.values[key] = value
	sess.updated = time.Now()
}

// SetAgent associates an agent id with the session.
func (s *MemoryStore) SetAgent(sessionID, agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		sess = &memorySession{values: make(map[string]any)}
		s.sessions[sessionID] = sess
	}
	sess.agentID = agentID
}
