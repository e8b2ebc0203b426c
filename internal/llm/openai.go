package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiChat is the slice of the OpenAI SDK the client calls, kept as an
// interface so tests can fake completions.
type openaiChat interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type openaiChatAdapter struct {
	client openai.Client
}

func (a openaiChatAdapter) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return a.client.Chat.Completions.New(ctx, params)
}

// OpenAIClient implements Client over the OpenAI chat completions API.
type OpenAIClient struct {
	chat    openaiChat
	modelID string
}

// NewOpenAIClient creates the primary LLM client.
func NewOpenAIClient(apiKey, modelID string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: openai api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = string(openai.ChatModelGPT4oMini)
	}
	return &OpenAIClient{
		chat:    openaiChatAdapter{client: openai.NewClient(option.WithAPIKey(apiKey))},
		modelID: modelID,
	}, nil
}

// Complete sends a completion request to OpenAI.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.modelID
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+len(req.System))
	if system := strings.TrimSpace(strings.Join(req.System, "\n\n")); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		switch msg.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(content))
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(content))
		default:
			messages = append(messages, openai.UserMessage(content))
		}
	}
	if len(messages) == 0 {
		return Response{}, errors.New("llm: openai requires at least one message")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(float64(req.TopP))
	}

	completion, err := c.chat.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("llm: openai completion failed: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return Response{}, errors.New("llm: openai returned no choices")
	}

	choice := completion.Choices[0]
	return Response{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
	}, nil
}
