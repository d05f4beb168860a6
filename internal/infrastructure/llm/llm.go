// Package llm provides the language-model summarizers used when local
// matching finds nothing.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-1.5-flash"

	defaultTemperature = 0.2
	defaultMaxTokens   = 80
	defaultTimeout     = 20 * time.Second
)

// Config selects and tunes a summarizer
type Config struct {
	Provider    string // "", openai or gemini
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = defaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// New builds the summarizer named by config.Provider. An empty provider
// returns a nil Summarizer and no error.
func New(ctx context.Context, config Config, logger zerolog.Logger) (domain.Summarizer, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "":
		return nil, nil
	case ProviderOpenAI:
		s, err := NewOpenAISummarizer(config, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderGemini:
		s, err := NewGeminiSummarizer(ctx, config, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidRequest, config.Provider)
	}
}
