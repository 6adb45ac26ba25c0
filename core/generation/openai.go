package generation

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/siherrmann/hoprag/helper"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrentRequests = 4

// OpenAIClient talks to an OpenAI compatible chat and embeddings API.
type OpenAIClient struct {
	chatModel      string
	embeddingModel string

	reqLock *semaphore.Weighted

	Client *openai.Client
}

// OpenAIClientParams configures NewOpenAIClient.
type OpenAIClientParams struct {
	ChatModel      string
	EmbeddingModel string

	BaseURL string
	APIKey  string

	MaxConcurrentRequests int64
}

// NewOpenAIClient creates a client. Retries are left to the caller.
func NewOpenAIClient(params OpenAIClientParams) (*OpenAIClient, error) {
	if params.APIKey == "" {
		return nil, helper.NewError("openai client", fmt.Errorf("api key is empty, set OPENAI_API_KEY"))
	}
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = defaultMaxConcurrentRequests
	}

	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
		option.WithMaxRetries(0),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	return &OpenAIClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		reqLock:        semaphore.NewWeighted(params.MaxConcurrentRequests),
		Client:         &client,
	}, nil
}

// Generate sends the system and user message and returns the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, system string, user string, temperature float64) (string, error) {
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
	}

	response, err := c.Client.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("completion without choices")
	}
	return response.Choices[0].Message.Content, nil
}

// Embed embeds all texts in one request, keeping input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	response, err := c.Client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, err
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, embedding := range response.Data {
		idx := int(embedding.Index)
		if idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("embedding index out of range: %d", embedding.Index)
		}
		vec := make([]float32, len(embedding.Embedding))
		for i, v := range embedding.Embedding {
			vec[i] = float32(v)
		}
		out[idx] = vec
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}
	return out, nil
}
