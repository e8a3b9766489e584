package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"minichat/pkg/domain"
)

// MemoryStore keeps conversations and messages in-process. It mirrors the
// Postgres store's behavior (generated IDs/timestamps, ordering, constraint
// errors) and backs tests that should not need a database.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message // conversation ID -> messages in insert order
	stamps        map[string]int64            // conversation ID -> last-activity sequence
	seq           int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
		stamps:        make(map[string]int64),
	}
}

// CreateConversation stores a new conversation with a generated ID.
func (m *MemoryStore) CreateConversation(_ context.Context, userID, title string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv := domain.Conversation{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		LastUpdated: time.Now().UTC(),
		Messages:    []domain.Message{},
	}
	m.conversations[conv.ID] = conv
	m.seq++
	m.stamps[conv.ID] = m.seq
	return conv, nil
}

// ListConversationsByUser returns the user's conversations, most recently
// updated first, with nested messages. The sequence counter breaks ties
// between wall-clock timestamps taken within the same instant.
func (m *MemoryStore) ListConversationsByUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]domain.Conversation, 0)
	for _, conv := range m.conversations {
		if conv.UserID != userID {
			continue
		}
		conv.Messages = append([]domain.Message{}, m.messages[conv.ID]...)
		items = append(items, conv)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return m.stamps[items[i].ID] > m.stamps[items[j].ID]
	})
	return items, nil
}

// UpdateConversationTitle overwrites the title and refreshes last_updated.
func (m *MemoryStore) UpdateConversationTitle(_ context.Context, conversationID, title string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[conversationID]
	if !ok {
		return domain.Conversation{}, ErrNotFound
	}
	conv.Title = title
	conv.LastUpdated = time.Now().UTC()
	m.conversations[conversationID] = conv
	m.seq++
	m.stamps[conversationID] = m.seq
	conv.Messages = nil
	return conv, nil
}

// InsertMessage appends one message, rejecting unknown conversations the way
// the database's foreign key would.
func (m *MemoryStore) InsertMessage(_ context.Context, conversationID, userID, content string, role domain.Role) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[conversationID]; !ok {
		return domain.Message{}, fmt.Errorf("insert message: conversation %q violates foreign key constraint", conversationID)
	}
	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	return msg, nil
}
