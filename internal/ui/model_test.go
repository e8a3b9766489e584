package ui

import (
	"context"
	"testing"
	"time"

	"minichat/internal/controller"
	"minichat/pkg/domain"

	tea "github.com/charmbracelet/bubbletea"
)

type stubRPC struct {
	sent []string
}

func (s *stubRPC) AskModel(_ context.Context, prompt string) (string, error) {
	return "reply to " + prompt, nil
}

func (s *stubRPC) CreateConversation(_ context.Context, userID, title string) (domain.Conversation, error) {
	return domain.Conversation{ID: "conv-1", UserID: userID, Title: title, LastUpdated: time.Now().UTC()}, nil
}

func (s *stubRPC) GetConversations(context.Context, string) ([]domain.Conversation, error) {
	return nil, nil
}

func (s *stubRPC) InsertMessage(_ context.Context, conversationID, userID, content string, role domain.Role) (domain.Message, error) {
	if role == domain.RoleUser {
		s.sent = append(s.sent, content)
	}
	return domain.Message{
		ID:             "msg",
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (s *stubRPC) UpdateConversation(_ context.Context, conversationID, title string) (domain.Conversation, error) {
	return domain.Conversation{ID: conversationID, Title: title, LastUpdated: time.Now().UTC()}, nil
}

func newTestModel() (*Model, *stubRPC) {
	rpc := &stubRPC{}
	who := domain.Identity{Subject: "auth0|alice", Name: "Alice"}
	model := NewModel(controller.New(rpc, who, nil), who)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(*Model), rpc
}

func pressEnter(t *testing.T, m *Model) *Model {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(*Model)
}

func TestEnterOnBlankInputLeavesTextareaClean(t *testing.T) {
	m, rpc := newTestModel()

	for i := 0; i < 3; i++ {
		m = pressEnter(t, m)
	}
	if got := m.textarea.Value(); got != "" {
		t.Fatalf("textarea value = %q, want empty after blank Enters", got)
	}
	if len(rpc.sent) != 0 {
		t.Fatalf("messages sent for blank input: %v", rpc.sent)
	}
}

func TestEnterSendsTypedDraft(t *testing.T) {
	m, _ := newTestModel()

	typed, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hello")})
	m = typed.(*Model)
	if got := m.textarea.Value(); got != "hello" {
		t.Fatalf("textarea value = %q before send", got)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)
	if cmd == nil {
		t.Fatal("expected a send command for non-blank input")
	}
	if got := m.textarea.Value(); got != "" {
		t.Fatalf("textarea value = %q, want reset after dispatch", got)
	}
	if got := m.ctrl.State().Draft; got != "hello" {
		t.Fatalf("controller draft = %q, want typed text", got)
	}
}
