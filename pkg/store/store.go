package store

import (
	"context"
	"errors"

	"minichat/pkg/domain"
)

// ErrNotFound is returned when an update or lookup targets a conversation
// that does not exist.
var ErrNotFound = errors.New("conversation not found")

// Store defines persistence operations for conversations and messages.
// The store generates record IDs and timestamps; callers never supply them.
type Store interface {
	// CreateConversation inserts a new conversation owned by userID and
	// returns the full created record.
	CreateConversation(ctx context.Context, userID, title string) (domain.Conversation, error)

	// ListConversationsByUser returns all conversations owned by userID,
	// each with its messages in creation order, ordered by last-updated
	// descending. A user with no conversations yields an empty slice.
	ListConversationsByUser(ctx context.Context, userID string) ([]domain.Conversation, error)

	// UpdateConversationTitle overwrites the title and refreshes the
	// last-updated timestamp, returning the updated record without its
	// messages. Returns ErrNotFound when no row matches.
	UpdateConversationTitle(ctx context.Context, conversationID, title string) (domain.Conversation, error)

	// InsertMessage appends one message to a conversation and returns the
	// created record. Inserting into a nonexistent conversation fails with
	// a constraint error.
	InsertMessage(ctx context.Context, conversationID, userID, content string, role domain.Role) (domain.Message, error)
}
