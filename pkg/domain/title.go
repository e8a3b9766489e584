package domain

import "strings"

// DefaultConversationTitle is used for conversations created before any
// message exists, e.g. via an explicit "new chat" action.
const DefaultConversationTitle = "New Chat"

const titleRuneLimit = 30

// TitleFromDraft derives a conversation title from the user's first message:
// the first 30 characters of the draft, with "..." appended when the draft is
// longer than that. An empty draft falls back to DefaultConversationTitle.
func TitleFromDraft(draft string) string {
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return DefaultConversationTitle
	}
	runes := []rune(draft)
	if len(runes) <= titleRuneLimit {
		return draft
	}
	return string(runes[:titleRuneLimit]) + "..."
}
