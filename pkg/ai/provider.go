package ai

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ProviderConfig selects and configures a ChatModel implementation.
type ProviderConfig struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Logger    zerolog.Logger
}

// NewChatModel builds the ChatModel for the configured provider.
func NewChatModel(cfg ProviderConfig) (ChatModel, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIModel(OpenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
			Logger:    cfg.Logger,
		})
	case ProviderGemini:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		model := cfg.Model
		if model == "" {
			model = "gemini-2.0-flash"
		}
		return NewOpenAIModel(OpenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     model,
			BaseURL:   baseURL,
			Provider:  ProviderGemini,
			MaxTokens: cfg.MaxTokens,
			Logger:    cfg.Logger,
		})
	case ProviderAnthropic:
		return NewAnthropicModel(AnthropicConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
			Logger:    cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}
