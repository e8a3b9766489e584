package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"minichat/pkg/ai"
	"minichat/pkg/domain"
	"minichat/pkg/store"
)

// Config holds runtime dependencies for the procedure layer.
type Config struct {
	Store     store.Store
	Generator ai.TextGenerator
}

// App implements the five chat procedures. Each procedure validates its input
// and performs exactly one store or LLM operation; composition of procedures
// happens only on the client side.
type App struct {
	store     store.Store
	generator ai.TextGenerator
}

// InsertMessageInput is the input shape of the insertMessage procedure.
type InsertMessageInput struct {
	ConversationID string      `json:"conversationId"`
	UserID         string      `json:"userId"`
	Content        string      `json:"content"`
	Role           domain.Role `json:"role"`
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator required")
	}
	return &App{store: cfg.Store, generator: cfg.Generator}, nil
}

// AskModel forwards the prompt verbatim to the LLM service and returns its
// text. Failures surface as ModelError; an empty-but-successful reply is
// returned as-is, the caller decides on a fallback.
func (a *App) AskModel(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", validationf("prompt is required")
	}
	text, err := a.generator.GenerateText(ctx, prompt)
	if err != nil {
		return "", &ModelError{Err: err}
	}
	return text, nil
}

// CreateConversation inserts a new conversation for the user. The title
// defaults to "New Chat" when absent.
func (a *App) CreateConversation(ctx context.Context, userID, title string) (domain.Conversation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Conversation{}, validationf("userId is required")
	}
	if strings.TrimSpace(title) == "" {
		title = domain.DefaultConversationTitle
	}
	conv, err := a.store.CreateConversation(ctx, userID, title)
	if err != nil {
		return domain.Conversation{}, &StoreError{Op: "create conversation", Err: err}
	}
	return conv, nil
}

// GetConversations returns the user's conversations with nested messages,
// most recently updated first. A user with no conversations gets an empty
// slice, never an error.
func (a *App) GetConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationf("userId is required")
	}
	items, err := a.store.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, &StoreError{Op: "list conversations", Err: err}
	}
	return items, nil
}

// InsertMessage appends one message to a conversation.
func (a *App) InsertMessage(ctx context.Context, in InsertMessageInput) (domain.Message, error) {
	if strings.TrimSpace(in.ConversationID) == "" {
		return domain.Message{}, validationf("conversationId is required")
	}
	if strings.TrimSpace(in.UserID) == "" {
		return domain.Message{}, validationf("userId is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return domain.Message{}, validationf("content is required")
	}
	if !in.Role.Valid() {
		return domain.Message{}, validationf("role must be %q or %q", domain.RoleUser, domain.RoleAssistant)
	}
	msg, err := a.store.InsertMessage(ctx, in.ConversationID, in.UserID, in.Content, in.Role)
	if err != nil {
		return domain.Message{}, &StoreError{Op: "insert message", Err: err}
	}
	return msg, nil
}

// UpdateConversation overwrites the title of the named conversation and
// refreshes its last-updated timestamp.
func (a *App) UpdateConversation(ctx context.Context, conversationID, title string) (domain.Conversation, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return domain.Conversation{}, validationf("conversationId is required")
	}
	if strings.TrimSpace(title) == "" {
		return domain.Conversation{}, validationf("title is required")
	}
	conv, err := a.store.UpdateConversationTitle(ctx, conversationID, title)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Conversation{}, &NotFoundError{Message: fmt.Sprintf("conversation %s not found", conversationID)}
		}
		return domain.Conversation{}, &StoreError{Op: "update conversation", Err: err}
	}
	return conv, nil
}
