package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAILLMClient implements LLMClient using the OpenAI chat completion API.
// It serves as the fallback provider behind Gemini.
type OpenAILLMClient struct {
	client  *openai.Client
	modelID string
}

// NewOpenAILLMClient creates an OpenAI-backed client.
func NewOpenAILLMClient(apiKey, modelID string) (*OpenAILLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: openai api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = openai.GPT4oMini
	}
	return &OpenAILLMClient{
		client:  openai.NewClient(apiKey),
		modelID: modelID,
	}, nil
}

// Complete sends a chat completion request to OpenAI.
func (c *OpenAILLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = c.modelID
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sys,
		})
	}
	for _, msg := range req.Messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case ChatRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case ChatRoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	if len(messages) == 0 {
		return LLMResponse{}, errors.New("conversation: openai requires at least one message")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   int(req.MaxTokens),
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("conversation: openai returned no choices")
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
