package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// GeminiSummarizer answers prompts with Google Gemini
type GeminiSummarizer struct {
	client *genai.Client
	model  *genai.GenerativeModel
	config Config
	logger zerolog.Logger
}

// NewGeminiSummarizer creates a Gemini summarizer
func NewGeminiSummarizer(ctx context.Context, config Config, logger zerolog.Logger) (*GeminiSummarizer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", domain.ErrProviderNotConfigured)
	}
	if config.Model == "" {
		config.Model = DefaultGeminiModel
	}
	config = config.withDefaults()

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(config.Temperature)
	model.SetMaxOutputTokens(int32(config.MaxTokens))

	return &GeminiSummarizer{
		client: client,
		model:  model,
		config: config,
		logger: logger.With().Str("component", "gemini").Logger(),
	}, nil
}

// Summarize generates a reply for prompt
func (s *GeminiSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", domain.ErrEmptyCompletion
	}

	s.logger.Debug().Str("model", s.config.Model).Msg("completion received")
	return text, nil
}

// Close releases the underlying connection
func (s *GeminiSummarizer) Close() error {
	return s.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
