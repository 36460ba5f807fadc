package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Default embedding models per provider.
const (
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"
)

// OpenAIEmbedder turns text into vectors through the OpenAI embeddings API.
// Gemini is reached through its OpenAI-compatible endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewEmbedder builds the embedder for provider. Providers without an
// embeddings endpoint return nil and no error.
func NewEmbedder(cfg ProviderConfig) (*OpenAIEmbedder, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == ProviderAnthropic {
		return nil, nil
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s api key is required for embeddings", provider)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	model := cfg.Model
	switch provider {
	case "", ProviderOpenAI:
		if model == "" {
			model = DefaultOpenAIEmbeddingModel
		}
	case ProviderGemini:
		config.BaseURL = GeminiBaseURL
		if model == "" {
			model = DefaultGeminiEmbeddingModel
		}
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{client: openai.NewClientWithConfig(config), model: model}, nil
}

// Model returns the embedding model identifier.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Embed returns one vector per input, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: inputs,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(inputs))
	}

	vectors := make([][]float32, len(inputs))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(inputs) {
			return nil, fmt.Errorf("create embeddings: vector index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
