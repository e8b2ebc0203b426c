package llm

import "strings"

const defaultSystemPrompt = "Você é um assistente virtual atencioso que responde clientes " +
	"de um pequeno negócio pelo WhatsApp. Responda em português, de forma breve e cordial."

// PromptBuilder assembles completion requests from the business system prompt,
// an optional retrieved context block, and recent conversation history.
type PromptBuilder struct {
	systemPrompt string
	ragBlock     string
	history      []ChatMessage
}

// NewPromptBuilder starts a builder with the business system prompt. An empty
// prompt falls back to a generic assistant instruction.
func NewPromptBuilder(systemPrompt string) *PromptBuilder {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &PromptBuilder{systemPrompt: systemPrompt}
}

// WithContext attaches a retrieved knowledge block. Empty blocks are ignored.
func (b *PromptBuilder) WithContext(block string) *PromptBuilder {
	b.ragBlock = strings.TrimSpace(block)
	return b
}

// WithHistory appends prior conversation turns in order.
func (b *PromptBuilder) WithHistory(history []ChatMessage) *PromptBuilder {
	b.history = history
	return b
}

// Build produces the request for the given user message.
func (b *PromptBuilder) Build(userMessage string) Request {
	system := []string{b.systemPrompt}
	if b.ragBlock != "" {
		system = append(system, b.ragBlock)
	}

	messages := make([]ChatMessage, 0, len(b.history)+1)
	messages = append(messages, b.history...)
	messages = append(messages, ChatMessage{Role: RoleUser, Content: userMessage})

	return Request{System: system, Messages: messages}
}
