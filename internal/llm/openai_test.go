package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	resp *openai.ChatCompletion
	err  error
	last openai.ChatCompletionNewParams
}

func (f *fakeChat) New(_ context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	f.last = params
	return f.resp, f.err
}

func TestOpenAICompleteReturnsText(t *testing.T) {
	chat := &fakeChat{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "  Olá! Como posso ajudar?  "}, FinishReason: "stop"},
		},
	}}
	c := &OpenAIClient{chat: chat, modelID: "gpt-4o-mini"}

	resp, err := c.Complete(context.Background(), Request{
		System:    []string{"você é um atendente"},
		Messages:  []ChatMessage{{Role: RoleUser, Content: "oi"}},
		MaxTokens: 128,
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá! Como posso ajudar?", resp.Text)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, openai.ChatModel("gpt-4o-mini"), chat.last.Model)
	// System prompt plus user message.
	assert.Len(t, chat.last.Messages, 2)
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	c := &OpenAIClient{chat: &fakeChat{resp: &openai.ChatCompletion{}}, modelID: "gpt-4o-mini"}

	_, err := c.Complete(context.Background(), Request{
		Messages: []ChatMessage{{Role: RoleUser, Content: "oi"}},
	})
	assert.Error(t, err)
}

func TestOpenAICompletePropagatesError(t *testing.T) {
	c := &OpenAIClient{chat: &fakeChat{err: errors.New("rate limited")}, modelID: "gpt-4o-mini"}

	_, err := c.Complete(context.Background(), Request{
		Messages: []ChatMessage{{Role: RoleUser, Content: "oi"}},
	})
	assert.ErrorContains(t, err, "rate limited")
}

func TestOpenAICompleteRequiresMessages(t *testing.T) {
	c := &OpenAIClient{chat: &fakeChat{}, modelID: "gpt-4o-mini"}

	_, err := c.Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "gpt-4o-mini")
	assert.Error(t, err)
}
