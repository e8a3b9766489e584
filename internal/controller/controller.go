package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"minichat/pkg/domain"
)

// FallbackReply is persisted as the assistant's turn when the model answers
// successfully but produces no usable text.
const FallbackReply = "The model returned an empty response. Please try again."

// ErrReplyPending is returned when a send is attempted while a previous
// turn's reply is still outstanding. Sends are serialized per controller.
var ErrReplyPending = errors.New("a reply is already pending")

// RPC is the procedure surface the controller drives. It is implemented by
// chatclient over HTTP and by fakes in tests.
type RPC interface {
	AskModel(ctx context.Context, prompt string) (string, error)
	CreateConversation(ctx context.Context, userID, title string) (domain.Conversation, error)
	GetConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	InsertMessage(ctx context.Context, conversationID, userID, content string, role domain.Role) (domain.Message, error)
	UpdateConversation(ctx context.Context, conversationID, title string) (domain.Conversation, error)
}

// State is a snapshot of the controller's client-visible state. The
// presentation layer renders it and nothing else.
type State struct {
	Conversations        []domain.Conversation
	ActiveConversationID string
	Draft                string
	AwaitingReply        bool
}

// ActiveConversation looks up the active conversation. When absent the
// presentation layer renders a welcome state instead of failing.
func (s State) ActiveConversation() (domain.Conversation, bool) {
	for _, conv := range s.Conversations {
		if conv.ID == s.ActiveConversationID {
			return conv, true
		}
	}
	return domain.Conversation{}, false
}

// Controller keeps the local conversation list in sync with the store by
// sequencing RPC calls. It is a read-through cache: state is rebuilt from
// the store on Load and optimistically patched after each mutation, never
// the reverse. All mutations happen on resolution of the controller's own
// calls; overlapping sends are rejected rather than interleaved.
type Controller struct {
	rpc    RPC
	user   domain.Identity
	logger *slog.Logger

	mu            sync.Mutex
	conversations []domain.Conversation
	activeID      string
	draft         string
	awaitingReply bool
	sendInFlight  bool
	onChange      func()
}

// New constructs a controller for an authenticated user. Model-phase
// failures are reported to logger and never surfaced to the presentation
// layer.
func New(rpc RPC, user domain.Identity, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{rpc: rpc, user: user, logger: logger}
}

// SetOnChange registers an observer invoked after every state mutation; the
// presentation layer uses it to trigger a re-render.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State returns a snapshot safe for concurrent reading.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	conversations := make([]domain.Conversation, len(c.conversations))
	for i, conv := range c.conversations {
		conv.Messages = append([]domain.Message{}, conv.Messages...)
		conversations[i] = conv
	}
	return State{
		Conversations:        conversations,
		ActiveConversationID: c.activeID,
		Draft:                c.draft,
		AwaitingReply:        c.awaitingReply,
	}
}

// SetDraft replaces the input draft.
func (c *Controller) SetDraft(draft string) {
	c.apply(func() {
		c.draft = draft
	})
}

// Load rebuilds local state from the store. When the user has conversations
// the most recently updated one becomes active.
func (c *Controller) Load(ctx context.Context) error {
	items, err := c.rpc.GetConversations(ctx, c.user.Subject)
	if err != nil {
		return err
	}
	c.apply(func() {
		c.conversations = items
		if len(items) > 0 {
			c.activeID = items[0].ID
		}
	})
	return nil
}

// StartConversation creates an empty conversation, prepends it locally, and
// makes it active.
func (c *Controller) StartConversation(ctx context.Context) error {
	conv, err := c.rpc.CreateConversation(ctx, c.user.Subject, domain.DefaultConversationTitle)
	if err != nil {
		return err
	}
	c.apply(func() {
		c.conversations = append([]domain.Conversation{conv}, c.conversations...)
		c.activeID = conv.ID
	})
	return nil
}

// SelectConversation activates a conversation. No network call is made; its
// messages were loaded by the initial bulk fetch.
func (c *Controller) SelectConversation(id string) {
	c.apply(func() {
		c.activeID = id
	})
}

// SendMessage runs one full turn: ensure a conversation exists, persist the
// user's message, refresh the conversation's timestamp, ask the model, and
// persist the reply. Store-phase failures surface to the caller; model-phase
// failures are logged and end the turn with the user message kept. Nothing
// already persisted is ever rolled back.
func (c *Controller) SendMessage(ctx context.Context) error {
	c.mu.Lock()
	draft := strings.TrimSpace(c.draft)
	if draft == "" {
		c.mu.Unlock()
		return nil
	}
	// sendInFlight guards the store phase, before awaitingReply is set;
	// a turn is exclusive from the moment its draft is read.
	if c.awaitingReply || c.sendInFlight {
		c.mu.Unlock()
		return ErrReplyPending
	}
	c.sendInFlight = true
	conversationID := c.activeID
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.sendInFlight = false
		c.mu.Unlock()
	}()

	isNew := conversationID == ""
	if isNew {
		conv, err := c.rpc.CreateConversation(ctx, c.user.Subject, domain.TitleFromDraft(draft))
		if err != nil {
			return err
		}
		conversationID = conv.ID
		c.apply(func() {
			c.conversations = append([]domain.Conversation{conv}, c.conversations...)
			c.activeID = conversationID
		})
	}

	userMsg, err := c.rpc.InsertMessage(ctx, conversationID, c.user.Subject, draft, domain.RoleUser)
	if err != nil {
		return err
	}

	if isNew {
		c.apply(func() {
			c.appendMessage(conversationID, userMsg)
		})
	} else {
		// The title is fixed after the first user message: only a
		// conversation that is still empty takes the derived title, later
		// sends just refresh the last-updated timestamp.
		title := c.titleForSend(conversationID, draft)
		updated, err := c.rpc.UpdateConversation(ctx, conversationID, title)
		if err != nil {
			return err
		}
		c.apply(func() {
			c.appendMessage(conversationID, userMsg)
			c.patchConversation(conversationID, updated.Title, updated.LastUpdated)
		})
	}

	c.apply(func() {
		c.draft = ""
		c.awaitingReply = true
	})

	reply, err := c.rpc.AskModel(ctx, draft)
	if err != nil {
		c.logger.Error("model reply failed", "conversation_id", conversationID, "err", err)
		c.apply(func() { c.awaitingReply = false })
		return nil
	}
	if strings.TrimSpace(reply) == "" {
		reply = FallbackReply
	}

	assistantMsg, err := c.rpc.InsertMessage(ctx, conversationID, c.user.Subject, reply, domain.RoleAssistant)
	if err != nil {
		c.logger.Error("persisting assistant reply failed", "conversation_id", conversationID, "err", err)
		c.apply(func() { c.awaitingReply = false })
		return nil
	}
	c.apply(func() {
		c.appendMessage(conversationID, assistantMsg)
		c.awaitingReply = false
	})
	return nil
}

func (c *Controller) titleForSend(conversationID, draft string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.conversations {
		if conv.ID != conversationID {
			continue
		}
		if len(conv.Messages) == 0 {
			return domain.TitleFromDraft(draft)
		}
		return conv.Title
	}
	return domain.TitleFromDraft(draft)
}

// apply runs a state mutation under the lock and notifies the observer.
func (c *Controller) apply(mutate func()) {
	c.mu.Lock()
	mutate()
	onChange := c.onChange
	c.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

// appendMessage and patchConversation are the reducer primitives local state
// is patched with after store writes. Callers hold the lock via apply.

func (c *Controller) appendMessage(conversationID string, msg domain.Message) {
	for i := range c.conversations {
		if c.conversations[i].ID == conversationID {
			c.conversations[i].Messages = append(c.conversations[i].Messages, msg)
			return
		}
	}
}

func (c *Controller) patchConversation(conversationID, title string, lastUpdated time.Time) {
	idx := -1
	for i := range c.conversations {
		if c.conversations[i].ID == conversationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	c.conversations[idx].Title = title
	c.conversations[idx].LastUpdated = lastUpdated
	if idx > 0 {
		conv := c.conversations[idx]
		c.conversations = append(c.conversations[:idx], c.conversations[idx+1:]...)
		c.conversations = append([]domain.Conversation{conv}, c.conversations...)
	}
}
