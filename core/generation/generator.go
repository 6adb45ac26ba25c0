package generation

import (
	"context"
	"fmt"

	"github.com/siherrmann/hoprag/core/pipeline"
	"github.com/siherrmann/hoprag/model"
)

// Generator produces a completion for a system and user message.
type Generator interface {
	Generate(ctx context.Context, system string, user string, temperature float64) (string, error)
}

// NewGenerator creates the chat client for the configured provider.
func NewGenerator(config model.GenerationConfig) (Generator, error) {
	switch config.Provider {
	case model.ProviderOpenAI:
		return NewOpenAIClient(OpenAIClientParams{
			ChatModel:             config.Model,
			BaseURL:               config.BaseURL,
			APIKey:                config.APIKey,
			MaxConcurrentRequests: config.MaxConcurrent,
		})
	case model.ProviderOllama:
		return NewOllamaClient(OllamaClientParams{
			ChatModel:             config.Model,
			BaseURL:               config.BaseURL,
			APIKey:                config.APIKey,
			MaxConcurrentRequests: config.MaxConcurrent,
		})
	default:
		return nil, &model.InvalidInputError{Field: "generation.provider", Reason: fmt.Sprintf("unsupported provider %q", config.Provider)}
	}
}

// NewEmbedFunc creates the embedding function for the configured provider.
// The hugot provider runs the model locally.
func NewEmbedFunc(config model.EmbeddingConfig) (pipeline.EmbedFunc, error) {
	switch config.Provider {
	case model.ProviderHugot:
		return pipeline.DefaultEmbedder(config.Model)
	case model.ProviderOpenAI:
		client, err := NewOpenAIClient(OpenAIClientParams{
			EmbeddingModel: config.Model,
			BaseURL:        config.BaseURL,
			APIKey:         config.APIKey,
		})
		if err != nil {
			return nil, err
		}
		return client.Embed, nil
	case model.ProviderOllama:
		client, err := NewOllamaClient(OllamaClientParams{
			EmbeddingModel: config.Model,
			BaseURL:        config.BaseURL,
			APIKey:         config.APIKey,
		})
		if err != nil {
			return nil, err
		}
		return client.Embed, nil
	default:
		return nil, &model.InvalidInputError{Field: "embedding.provider", Reason: fmt.Sprintf("unsupported provider %q", config.Provider)}
	}
}
