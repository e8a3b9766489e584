package ai

import "context"

// TextGenerator produces a reply for a prompt. The prompt is forwarded to the
// provider verbatim; all providers (Gemini, OpenAI-compatible) implement this
// interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
