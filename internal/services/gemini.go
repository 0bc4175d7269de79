package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bobarin/placeguide/internal/logger"
)

// ---------------------------------------------------------------------------
// Gemini Text Generation Service
// Uses the Google Gen AI SDK. The client is created lazily on first use so
// that a missing credential surfaces as a generation failure rather than a
// startup error.
// ---------------------------------------------------------------------------

const defaultGeminiModel = "gemini-flash-latest"

type GeminiService struct {
	apiKey string
	model  string
}

// Ensure GeminiService implements TextGenerator at compile time.
var _ TextGenerator = (*GeminiService)(nil)

// NewGeminiService creates a Gemini text generator. An empty model falls back
// to gemini-flash-latest.
func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiService{
		apiKey: apiKey,
		model:  model,
	}
}

// GenerateText sends the prompt as a single user turn and returns the text of
// the first candidate.
func (s *GeminiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("gemini API key is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	logger.Debugf("[Gemini] Generating script (model=%s, promptLen=%d)", s.model, len([]rune(prompt)))

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}

	logger.Debugf("[Gemini] Script generated (%d chars)", len([]rune(text)))
	return text, nil
}
