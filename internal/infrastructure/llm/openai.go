package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// OpenAISummarizer answers prompts with an OpenAI chat completion
type OpenAISummarizer struct {
	client *openai.Client
	config Config
	logger zerolog.Logger
}

// NewOpenAISummarizer creates an OpenAI summarizer. BaseURL overrides the
// API endpoint, which also lets compatible gateways be used.
func NewOpenAISummarizer(config Config, logger zerolog.Logger) (*OpenAISummarizer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key is empty", domain.ErrProviderNotConfigured)
	}
	if config.Model == "" {
		config.Model = DefaultOpenAIModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAISummarizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config.withDefaults(),
		logger: logger.With().Str("component", "openai").Logger(),
	}, nil
}

// Summarize sends prompt as a single user message
func (s *OpenAISummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", domain.ErrEmptyCompletion
	}

	s.logger.Debug().
		Str("model", s.config.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion received")

	return text, nil
}
