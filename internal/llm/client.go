// Package llm provides the language-model gateway: provider clients, a
// primary/fallback wrapper and a redis-backed response cache.
package llm

import "context"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a rendered conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
	// SkipCache bypasses the memoization layer for this call. Used for
	// extraction prompts whose answer depends on per-conversation state.
	SkipCache bool
}

// Response is the provider-neutral completion result.
type Response struct {
	Text       string
	StopReason string
}

// Client is implemented by every LLM provider and by the decorators
// (fallback, cache) wrapped around them.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
