package model

import (
	"fmt"
	"os"
	"time"

	"github.com/siherrmann/hoprag/helper"
	"gopkg.in/yaml.v3"
)

const (
	ProviderHugot    = "hugot"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	StoreMemory      = "memory"
	StorePostgres    = "postgres"
	IndexTypeHNSW    = "hnsw"
	IndexTypeIVFFlat = "ivfflat"
	defaultSnapshot  = "default"
	defaultChatModel = "gpt-4o-mini"
)

// Config is the complete configuration of a HopRAG instance.
type Config struct {
	Snapshot   string           `yaml:"snapshot" json:"snapshot"`
	DataDir    string           `yaml:"data_dir" json:"data_dir"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Reasoning  ReasoningConfig  `yaml:"reasoning" json:"reasoning"`
	Embedding  EmbeddingConfig  `yaml:"embedding" json:"embedding"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Store      StoreConfig      `yaml:"store" json:"store"`
}

// RetrievalConfig configures the hybrid retriever.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" json:"top_k"`
	// LexicalWeight w fuses scores as (1-w)*dense + w*lexical. Zero is dense-only.
	LexicalWeight       float64 `yaml:"lexical_weight" json:"lexical_weight"`
	CandidateMultiplier int     `yaml:"candidate_multiplier" json:"candidate_multiplier"`
	EmbedBatchSize      int     `yaml:"embed_batch_size" json:"embed_batch_size"`
	BM25K1              float64 `yaml:"bm25_k1" json:"bm25_k1"`
	BM25B               float64 `yaml:"bm25_b" json:"bm25_b"`
}

// ReasoningConfig bounds graph context expansion.
type ReasoningConfig struct {
	NeighborsPerEntity int `yaml:"neighbors_per_entity" json:"neighbors_per_entity"`
	MaxContextChars    int `yaml:"max_context_chars" json:"max_context_chars"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	BaseURL    string `yaml:"base_url" json:"base_url,omitempty"`
	APIKey     string `yaml:"-" json:"-"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
}

// GenerationConfig selects the answer generation provider and its call policy.
type GenerationConfig struct {
	Provider     string        `yaml:"provider" json:"provider"`
	Model        string        `yaml:"model" json:"model"`
	BaseURL      string        `yaml:"base_url" json:"base_url,omitempty"`
	APIKey       string        `yaml:"-" json:"-"`
	Temperature  float64       `yaml:"temperature" json:"temperature"`
	MinInterval  time.Duration `yaml:"min_interval" json:"min_interval"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt"`
	// MaxConcurrent caps in-flight provider requests per client.
	MaxConcurrent int64 `yaml:"max_concurrent" json:"max_concurrent"`
}

// StoreConfig selects where dense vectors are persisted.
type StoreConfig struct {
	Backend   string `yaml:"backend" json:"backend"`
	IndexType string `yaml:"index_type" json:"index_type"`
}

// DefaultSystemPrompt instructs the generator how to use the evidence.
const DefaultSystemPrompt = "Answer the multi-hop question using provided context. Be concise."

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Snapshot: defaultSnapshot,
		DataDir:  "./data",
		Retrieval: RetrievalConfig{
			TopK:                3,
			LexicalWeight:       0,
			CandidateMultiplier: 4,
			EmbedBatchSize:      32,
			BM25K1:              1.5,
			BM25B:               0.75,
		},
		Reasoning: ReasoningConfig{
			NeighborsPerEntity: 3,
			MaxContextChars:    2000,
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderHugot,
			Model:      "sentence-transformers/all-MiniLM-L6-v2",
			Dimensions: 384,
		},
		Generation: GenerationConfig{
			Provider:      ProviderOpenAI,
			Model:         defaultChatModel,
			Temperature:   0.1,
			MinInterval:   5 * time.Second,
			MaxRetries:    3,
			Timeout:       time.Minute,
			SystemPrompt:  DefaultSystemPrompt,
			MaxConcurrent: 4,
		},
		Store: StoreConfig{
			Backend:   StoreMemory,
			IndexType: IndexTypeHNSW,
		},
	}
}

// LoadConfig reads a yaml file on top of the defaults and applies environment overrides.
// An empty path returns the defaults with environment overrides.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, helper.NewError("read config", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, helper.NewError("parse config", err)
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// ApplyEnv overrides settings from HOPRAG_* variables and provider credentials.
func (c *Config) ApplyEnv() {
	c.Snapshot = helper.GetEnvString("HOPRAG_SNAPSHOT", c.Snapshot)
	c.DataDir = helper.GetEnvString("HOPRAG_DATA_DIR", c.DataDir)
	c.Retrieval.TopK = helper.GetEnvInt("HOPRAG_TOP_K", c.Retrieval.TopK)
	c.Retrieval.LexicalWeight = helper.GetEnvFloat("HOPRAG_LEXICAL_WEIGHT", c.Retrieval.LexicalWeight)
	c.Store.Backend = helper.GetEnvString("HOPRAG_STORE", c.Store.Backend)
	c.Embedding.Provider = helper.GetEnvString("HOPRAG_EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = helper.GetEnvString("HOPRAG_EMBEDDING_MODEL", c.Embedding.Model)
	c.Generation.Provider = helper.GetEnvString("HOPRAG_GENERATION_PROVIDER", c.Generation.Provider)
	c.Generation.Model = helper.GetEnvString("HOPRAG_GENERATION_MODEL", c.Generation.Model)

	switch c.Generation.Provider {
	case ProviderOpenAI:
		c.Generation.APIKey = helper.GetEnvString("OPENAI_API_KEY", c.Generation.APIKey)
		c.Generation.BaseURL = helper.GetEnvString("OPENAI_BASE_URL", c.Generation.BaseURL)
	case ProviderOllama:
		c.Generation.APIKey = helper.GetEnvString("OLLAMA_API_KEY", c.Generation.APIKey)
		c.Generation.BaseURL = helper.GetEnvString("OLLAMA_HOST", c.Generation.BaseURL)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI:
		c.Embedding.APIKey = helper.GetEnvString("OPENAI_API_KEY", c.Embedding.APIKey)
		c.Embedding.BaseURL = helper.GetEnvString("OPENAI_BASE_URL", c.Embedding.BaseURL)
	case ProviderOllama:
		c.Embedding.APIKey = helper.GetEnvString("OLLAMA_API_KEY", c.Embedding.APIKey)
		c.Embedding.BaseURL = helper.GetEnvString("OLLAMA_HOST", c.Embedding.BaseURL)
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Snapshot == "":
		return &InvalidInputError{Field: "snapshot", Reason: "must not be empty"}
	case c.Retrieval.TopK < 0:
		return &InvalidInputError{Field: "retrieval.top_k", Reason: "must not be negative"}
	case c.Retrieval.LexicalWeight < 0 || c.Retrieval.LexicalWeight > 1:
		return &InvalidInputError{Field: "retrieval.lexical_weight", Reason: "must be within [0, 1]"}
	case c.Retrieval.EmbedBatchSize <= 0:
		return &InvalidInputError{Field: "retrieval.embed_batch_size", Reason: "must be positive"}
	case c.Reasoning.NeighborsPerEntity <= 0:
		return &InvalidInputError{Field: "reasoning.neighbors_per_entity", Reason: "must be positive"}
	case c.Reasoning.MaxContextChars <= 0:
		return &InvalidInputError{Field: "reasoning.max_context_chars", Reason: "must be positive"}
	case c.Generation.MaxRetries < 0:
		return &InvalidInputError{Field: "generation.max_retries", Reason: "must not be negative"}
	}

	switch c.Store.Backend {
	case StoreMemory, StorePostgres:
	default:
		return &InvalidInputError{Field: "store.backend", Reason: fmt.Sprintf("unsupported backend %q", c.Store.Backend)}
	}

	switch c.Store.IndexType {
	case IndexTypeHNSW, IndexTypeIVFFlat:
	default:
		return &InvalidInputError{Field: "store.index_type", Reason: fmt.Sprintf("unsupported index type %q", c.Store.IndexType)}
	}
	return nil
}
