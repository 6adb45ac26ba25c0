package generation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/semaphore"
)

// defaultNumCtx is the context window ollama uses unless told otherwise.
const defaultNumCtx = 4096

// OllamaClient talks to a local or remote ollama server.
type OllamaClient struct {
	chatModel      string
	embeddingModel string

	reqLock *semaphore.Weighted

	Client *api.Client
}

// OllamaClientParams configures NewOllamaClient. An empty BaseURL uses OLLAMA_HOST.
type OllamaClientParams struct {
	ChatModel      string
	EmbeddingModel string

	BaseURL string
	APIKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewOllamaClient creates a client for the server at params.BaseURL.
func NewOllamaClient(params OllamaClientParams) (*OllamaClient, error) {
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = defaultMaxConcurrentRequests
	}

	var client *api.Client
	if params.BaseURL == "" {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	} else {
		u, err := url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}

		httpClient := http.DefaultClient
		if params.APIKey != "" {
			httpClient = &http.Client{
				Transport: &headerTransport{
					headers: map[string]string{"Authorization": "Bearer " + params.APIKey},
					rt:      http.DefaultTransport,
				},
			}
		}
		client = api.NewClient(u, httpClient)
	}

	return &OllamaClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		reqLock:        semaphore.NewWeighted(params.MaxConcurrentRequests),
		Client:         client,
	}, nil
}

// Generate runs a non-streaming chat request.
func (c *OllamaClient) Generate(ctx context.Context, system string, user string, temperature float64) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.chatModel,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": temperature},
	}
	if tokens := promptTokens(system + user); tokens > defaultNumCtx {
		req.Options["num_ctx"] = tokens
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var content string
	err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		content += cr.Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// promptTokens estimates the tokens needed for the prompt plus room for the answer.
// Short prompts cannot exceed the default window and are not tokenized.
func promptTokens(prompt string) int {
	if len(prompt) <= defaultNumCtx {
		return 0
	}
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return 0
	}
	return len(enc.Encode(prompt, nil, nil)) + 200
}

// Embed embeds all texts in one request, keeping input order.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(ctx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(res.Embeddings), len(texts))
	}
	return res.Embeddings, nil
}
