package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/parlorgames/mystery-engine/pkg/chat"
)

const DefaultOpenAIMaxTokens = 1024

// OpenAIService implements LLMService for OpenAI chat completions.
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

func NewOpenAIService(apiKey string, modelName string, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		client:    openai.NewClient(apiKey),
		modelName: modelName,
		logger:    logger,
	}
}

func (o *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Chat generates a character reply using OpenAI chat completions. The API
// accepts system messages inline, so no role splitting is needed.
func (o *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	completionMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		completionMessages = append(completionMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	completion, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.modelName,
		MaxTokens: DefaultOpenAIMaxTokens,
		Messages:  completionMessages,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
