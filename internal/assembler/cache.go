package assembler

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maestro-agents/maestro/pkg/models"
)

// DefaultCacheTTL bounds how long an assembled context may be reused.
const DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	value   *models.AssembledContext
	expires time.Time
}

// Cache is a TTL-bounded cache of assembled contexts. Values are shared
// between callers and must be treated as read-only.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a cache with the given TTL (DefaultCacheTTL when zero).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Key builds the canonical cache key for a session and its assembly
// options. Option keys are sorted, and the session's updatedAt and
// messageCount are folded in so any mutation changes the key.
func Key(sessionID string, updatedAt time.Time, messageCount int, options map[string]any) string {
	canonical := make(map[string]any, len(options)+2)
	for k, v := range options {
		canonical[k] = v
	}
	canonical["_updatedAt"] = updatedAt.UnixNano()
	canonical["_messageCount"] = messageCount

	keys := make([]string, 0, len(canonical))
	for k := range canonical {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(sessionID)
	b.WriteByte('|')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		raw, _ := json.Marshal(canonical[k])
		b.WriteString(k)
		b.WriteByte('=')
		b.Write(raw)
	}
	return b.String()
}

// Get returns the cached context for key, if present and unexpired.
func (c *Cache) Get(key string) (*models.AssembledContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Put stores an assembled context under key.
func (c *Cache) Put(key string, value *models.AssembledContext) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops every entry belonging to sessionID.
func (c *Cache) Invalidate(sessionID string) {
	prefix := sessionID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of live entries, evicting expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
	return len(c.entries)
}
