package assembler

import (
	"testing"
	"time"

	"github.com/maestro-agents/maestro/pkg/models"
)

func TestCacheKeyCanonicalization(t *testing.T) {
	at := time.Now()
	a := Key("s1", at, 3, map[string]any{"x": 1, "y": "two"})
	b := Key("s1", at, 3, map[string]any{"y": "two", "x": 1})
	if a != b {
		t.Errorf("key order-sensitive:\n%s\n%s", a, b)
	}

	// Session mutation changes the key.
	if Key("s1", at.Add(time.Second), 3, nil) == Key("s1", at, 3, nil) {
		t.Error("updatedAt not folded into key")
	}
	if Key("s1", at, 4, nil) == Key("s1", at, 3, nil) {
		t.Error("messageCount not folded into key")
	}
	if Key("s2", at, 3, nil) == Key("s1", at, 3, nil) {
		t.Error("sessionID not folded into key")
	}
}

func TestCacheGetPut(t *testing.T) {
	c := NewCache(time.Minute)
	value := &models.AssembledContext{SystemPrompt: "sp"}

	if _, ok := c.Get("k"); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Put("k", value)
	got, ok := c.Get("k")
	if !ok || got != value {
		t.Errorf("Get = %v %v, want the stored pointer", got, ok)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("k", &models.AssembledContext{})
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry missing before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry served")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after expiry, want 0", c.Len())
	}
}

func TestCacheInvalidateByPrefix(t *testing.T) {
	c := NewCache(time.Minute)
	at := time.Now()
	c.Put(Key("s1", at, 1, nil), &models.AssembledContext{})
	c.Put(Key("s1", at, 2, nil), &models.AssembledContext{})
	c.Put(Key("s2", at, 1, nil), &models.AssembledContext{})

	c.Invalidate("s1")
	if c.Len() != 1 {
		t.Errorf("Len = %d after invalidation, want 1", c.Len())
	}
	if _, ok := c.Get(Key("s2", at, 1, nil)); !ok {
		t.Error("other session's entry was invalidated")
	}
}
