package assembler

import (
	"context"
	"strings"
	"testing"

	"github.com/maestro-agents/maestro/internal/sessions"
	"github.com/maestro-agents/maestro/pkg/models"
)

func testAssembler(t *testing.T, store *sessions.MemoryStore) *Assembler {
	t.Helper()
	sections := SectionsFunc(func(ctx context.Context, sessionID, agentID string) ([]Section, error) {
		return []Section{
			{Name: "bootstrap", Content: "You are an assistant.", Priority: PriorityBootstrap},
			{Name: "datetime", Content: "It is Monday.", Priority: PriorityDatetime},
		}, nil
	})
	skills := SkillsFunc(func(ctx context.Context, sessionID, agentID string) ([]models.Skill, error) {
		return []models.Skill{{
			ID: "calc", Name: "calculator", Priority: 5,
			Instructions: "Use the add tool for arithmetic.",
			Tools:        []models.ToolDefinition{{Name: "add", Description: "Add numbers."}},
		}}, nil
	})
	return New(store, sections, skills, DefaultConfig(), nil)
}

func seedSession(t *testing.T, store *sessions.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store.SetMetadata("s1", "modelId", "claude-3-5-sonnet-latest")
	if _, err := store.Append(ctx, "s1", &models.Message{Role: "user", Type: models.MessageText, Content: "hi"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Append(ctx, "s1", &models.Message{Role: "assistant", Type: models.MessageText, Content: "hello"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestAssembleBuildsFullContext(t *testing.T) {
	store := sessions.NewMemoryStore()
	seedSession(t, store)
	a := testAssembler(t, store)

	got, err := a.Assemble(context.Background(), "s1", "agent-1", AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if !strings.Contains(got.SystemPrompt, "You are an assistant.") {
		t.Error("bootstrap section missing from system prompt")
	}
	if !strings.Contains(got.SystemPrompt, "## calculator") {
		t.Error("skills section missing from system prompt")
	}
	// Priority order: bootstrap before skills before datetime.
	boot := strings.Index(got.SystemPrompt, "You are an assistant.")
	date := strings.Index(got.SystemPrompt, "It is Monday.")
	if boot > date {
		t.Error("sections out of priority order")
	}

	if len(got.Messages) != 2 || got.Messages[0].Content != "hi" || got.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if len(got.Tools) != 1 || got.Tools[0].Name != "add" {
		t.Errorf("tools = %+v, want skill tool collected", got.Tools)
	}
	if got.Parameters.ModelID != "claude-3-5-sonnet-latest" {
		t.Errorf("model = %q", got.Parameters.ModelID)
	}
	if got.Parameters.MaxTokens != 8192 {
		t.Errorf("maxTokens = %d, want the model's max output", got.Parameters.MaxTokens)
	}

	md := got.Metadata
	if md.Tokens.Total == 0 || md.Tokens.SystemPrompt == 0 || md.Tokens.Messages == 0 {
		t.Errorf("token estimates = %+v", md.Tokens)
	}
	if md.Truncation == nil || md.Truncation.RemovedCount != 0 {
		t.Errorf("truncation = %+v", md.Truncation)
	}
	if md.Compaction == nil || md.Compaction.Needed {
		t.Errorf("compaction = %+v", md.Compaction)
	}
	if len(md.ActiveSkills) != 1 || md.ActiveSkills[0] != "calculator" {
		t.Errorf("active skills = %v", md.ActiveSkills)
	}
}

func TestAssembleUsesCacheUntilMutation(t *testing.T) {
	store := sessions.NewMemoryStore()
	seedSession(t, store)
	a := testAssembler(t, store)
	ctx := context.Background()

	first, err := a.Assemble(ctx, "s1", "agent-1", AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	second, err := a.Assemble(ctx, "s1", "agent-1", AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if first != second {
		t.Error("unchanged session should hit the cache")
	}

	// Appending changes messageCount/updatedAt, so the key changes.
	store.Append(ctx, "s1", &models.Message{Role: "user", Type: models.MessageText, Content: "more"})
	third, err := a.Assemble(ctx, "s1", "agent-1", AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if third == first {
		t.Error("mutated session served a stale cache entry")
	}
	if len(third.Messages) != 3 {
		t.Errorf("messages = %d, want 3", len(third.Messages))
	}
}

func TestAssembleDistinctOptionsDistinctEntries(t *testing.T) {
	store := sessions.NewMemoryStore()
	seedSession(t, store)
	a := testAssembler(t, store)
	ctx := context.Background()

	plain, _ := a.Assemble(ctx, "s1", "agent-1", AssembleOptions{})
	excluded, err := a.Assemble(ctx, "s1", "agent-1", AssembleOptions{ExcludeTools: []string{"add"}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if plain == excluded {
		t.Error("different options shared one cache entry")
	}
	if len(excluded.Tools) != 0 {
		t.Errorf("excluded tools = %+v", excluded.Tools)
	}
}

func TestInvalidateCache(t *testing.T) {
	store := sessions.NewMemoryStore()
	seedSession(t, store)
	a := testAssembler(t, store)
	ctx := context.Background()

	first, _ := a.Assemble(ctx, "s1", "agent-1", AssembleOptions{})
	a.InvalidateCache("s1")
	second, err := a.Assemble(ctx, "s1", "agent-1", AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if first == second {
		t.Error("invalidated entry was served")
	}
}

func TestAssembleMissingModelFails(t *testing.T) {
	store := sessions.NewMemoryStore()
	store.Append(context.Background(), "s1", &models.Message{Role: "user", Content: "hi"})
	a := testAssembler(t, store)

	if _, err := a.Assemble(context.Background(), "s1", "agent-1", AssembleOptions{}); err == nil {
		t.Error("missing model id should be a hard failure")
	}
}

func TestCheckCompaction(t *testing.T) {
	store := sessions.NewMemoryStore()
	store.SetMetadata("s1", "modelId", "claude-3-5-sonnet-latest")
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		store.Append(ctx, "s1", &models.Message{Role: "user", Type: models.MessageText, Content: "filler"})
	}
	a := testAssembler(t, store)

	check, err := a.CheckCompaction(ctx, "s1", "agent-1")
	if err != nil {
		t.Fatalf("CheckCompaction: %v", err)
	}
	if !check.Needed || check.Reason != models.CompactionMessageCount {
		t.Errorf("check = %+v, want message_count compaction", check)
	}
}
