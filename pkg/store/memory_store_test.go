package store

import (
	"context"
	"errors"
	"testing"

	"minichat/pkg/domain"
)

func TestListConversationsEmptyUser(t *testing.T) {
	s := NewMemoryStore()
	items, err := s.ListConversationsByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty slice, got %d items", len(items))
	}
}

func TestListConversationsOrderedByActivity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.CreateConversation(ctx, "alice", "first")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := s.CreateConversation(ctx, "alice", "second")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := s.CreateConversation(ctx, "bob", "not alice's"); err != nil {
		t.Fatalf("create bob's: %v", err)
	}

	items, err := s.ListConversationsByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(items))
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Fatalf("expected newest first, got %q then %q", items[0].Title, items[1].Title)
	}

	// Touching the older conversation moves it to the front.
	if _, err := s.UpdateConversationTitle(ctx, first.ID, "renamed"); err != nil {
		t.Fatalf("update: %v", err)
	}
	items, err = s.ListConversationsByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list after update: %v", err)
	}
	if items[0].ID != first.ID {
		t.Fatalf("expected updated conversation first, got %q", items[0].Title)
	}
	if items[0].Title != "renamed" {
		t.Fatalf("expected renamed title, got %q", items[0].Title)
	}
}

func TestMessagesNestedInCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	conv, err := s.CreateConversation(ctx, "alice", "chat")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.InsertMessage(ctx, conv.ID, "alice", "hello", domain.RoleUser); err != nil {
		t.Fatalf("insert user message: %v", err)
	}
	if _, err := s.InsertMessage(ctx, conv.ID, "alice", "hi there", domain.RoleAssistant); err != nil {
		t.Fatalf("insert assistant message: %v", err)
	}

	items, err := s.ListConversationsByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	msgs := items[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Fatalf("expected user then assistant, got %s then %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestUpdateUnknownConversation(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.UpdateConversationTitle(context.Background(), "missing", "title")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertMessageUnknownConversation(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.InsertMessage(context.Background(), "missing", "alice", "hello", domain.RoleUser)
	if err == nil {
		t.Fatalf("expected constraint error for unknown conversation")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("insert should fail with a constraint error, not ErrNotFound")
	}
}
