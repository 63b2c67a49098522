package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foundry-9/quilltap/chat"
	"github.com/foundry-9/quilltap/llm"
	"github.com/foundry-9/quilltap/migrations"
)

// setupTestDB creates an in-memory database and runs migrations.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Run(db, zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func TestAddAndListMessages(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Minute).Truncate(time.Second)
	msgs := []*chat.StoredMessage{
		{ChatID: "c1", Role: llm.RoleUser, Content: "hello", CreatedAt: base},
		{ChatID: "c1", Role: llm.RoleAssistant, Content: "hi there", CreatedAt: base.Add(time.Second)},
		{ChatID: "c1", Role: llm.RoleTool, ToolName: "web_search", Content: "results", CreatedAt: base.Add(2 * time.Second)},
		{ChatID: "other", Role: llm.RoleUser, Content: "unrelated", CreatedAt: base},
	}
	for _, msg := range msgs {
		if err := store.AddMessage(ctx, msg); err != nil {
			t.Fatalf("failed to add message: %v", err)
		}
		if msg.ID == "" {
			t.Fatalf("expected an id assigned on insert")
		}
	}

	got, err := store.Messages(ctx, "c1")
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages for c1, got %d", len(got))
	}
	for i, want := range msgs[:3] {
		if got[i].Content != want.Content || got[i].Role != want.Role {
			t.Errorf("message %d: expected %q/%q, got %q/%q", i, want.Role, want.Content, got[i].Role, got[i].Content)
		}
	}
	if got[2].ToolName != "web_search" {
		t.Errorf("expected tool name round-tripped, got %q", got[2].ToolName)
	}
}

func TestAddMessageIdempotent(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	msg := &chat.StoredMessage{ID: "m1", ChatID: "c1", Role: llm.RoleUser, Content: "once"}
	if err := store.AddMessage(ctx, msg); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.AddMessage(ctx, msg); err != nil {
		t.Fatalf("retried insert must not fail: %v", err)
	}

	got, err := store.Messages(ctx, "c1")
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected no duplicate rows, got %d", len(got))
	}
}

func TestUpdateMessage(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	msg := &chat.StoredMessage{ID: "m1", ChatID: "c1", Role: llm.RoleAssistant, Content: "draft"}
	if err := store.AddMessage(ctx, msg); err != nil {
		t.Fatalf("failed to add message: %v", err)
	}

	if err := store.UpdateMessage(ctx, "c1", "m1", "final"); err != nil {
		t.Fatalf("failed to update message: %v", err)
	}

	got, err := store.Messages(ctx, "c1")
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if got[0].Content != "final" {
		t.Errorf("expected updated content, got %q", got[0].Content)
	}

	if err := store.UpdateMessage(ctx, "c1", "missing", "x"); err == nil {
		t.Errorf("expected error updating a nonexistent message")
	}
	if err := store.UpdateMessage(ctx, "wrong-chat", "m1", "x"); err == nil {
		t.Errorf("expected error updating across chats")
	}
}

func TestDeleteChat(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	for _, chatID := range []string{"c1", "c1", "c2"} {
		if err := store.AddMessage(ctx, &chat.StoredMessage{ChatID: chatID, Role: llm.RoleUser, Content: "x"}); err != nil {
			t.Fatalf("failed to add message: %v", err)
		}
	}

	if err := store.DeleteChat(ctx, "c1"); err != nil {
		t.Fatalf("failed to delete chat: %v", err)
	}

	if got, _ := store.Messages(ctx, "c1"); len(got) != 0 {
		t.Errorf("expected c1 emptied, got %d messages", len(got))
	}
	if got, _ := store.Messages(ctx, "c2"); len(got) != 1 {
		t.Errorf("expected c2 untouched, got %d messages", len(got))
	}
}
