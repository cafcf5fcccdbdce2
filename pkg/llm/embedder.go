package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig represents the configuration for the policy embedder.
type EmbedderConfig struct {
	Model    string
	APIKey   string // falls back to OPENAI_API_KEY
	BaseURL  string
	MaxChars int
}

// Embedder turns policy text into a vector used for the related-policies
// similarity lookup.
type Embedder struct {
	config EmbedderConfig
	client *openai.LLM
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.MaxChars == 0 {
		config.MaxChars = 8000
	}

	opts := []openai.Option{openai.WithEmbeddingModel(config.Model)}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		client: client,
	}, nil
}

// Embed returns the embedding vector for text, truncated to the configured
// prefix so oversized policies stay inside the model's input budget.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncateRunes(text, e.config.MaxChars)

	embeddings, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding call returned no vectors")
	}

	return embeddings[0], nil
}
