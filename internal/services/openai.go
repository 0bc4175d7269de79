package services

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bobarin/placeguide/internal/logger"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIService is the alternate text generator, selected with
// TEXT_PROVIDER=openai.
type OpenAIService struct {
	client *openai.Client
	model  string
}

var _ TextGenerator = (*OpenAIService)(nil)

func NewOpenAIService(apiKey, model string) *OpenAIService {
	return NewOpenAIServiceWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIServiceWithConfig allows a custom base URL (proxies, tests).
func NewOpenAIServiceWithConfig(cfg openai.ClientConfig, model string) *OpenAIService {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// GenerateText sends the whole composed prompt as one user message.
func (s *OpenAIService) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai returned empty content")
	}

	logger.Debugf("[OpenAI] Script generated (model=%s, %d chars, %d tokens)", s.model, len([]rune(text)), resp.Usage.TotalTokens)
	return text, nil
}
