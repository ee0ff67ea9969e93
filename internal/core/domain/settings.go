package domain

import (
	"errors"
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API (LLM only).
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// AllEmbeddingProviders returns the providers with an embedding API.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderGemini}
}

// AllLLMProviders returns every provider that can generate answers.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini}
}

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// SupportsEmbedding returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderGemini
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend selects the vector store implementation.
type VectorBackend string

// Available vector store backends.
const (
	// VectorBackendMemory keeps vectors in process memory (tests, dry runs).
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendSQLite stores vectors in the local metadata database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendQdrant talks to a Qdrant server over REST.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendWeaviate talks to a Weaviate server.
	VectorBackendWeaviate VectorBackend = "weaviate"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendQdrant, VectorBackendWeaviate:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the backend needs a server URL.
func (b VectorBackend) IsRemote() bool {
	return b == VectorBackendQdrant || b == VectorBackendWeaviate
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string `toml:"base_url"`

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string `toml:"api_key"`

	// Dimensions is the expected vector size. Zero means use the model default.
	Dimensions int `toml:"dimensions"`

	// MaxAttempts bounds calls per chunk, including the first.
	MaxAttempts int `toml:"max_attempts"`

	// RequestsPerSecond paces calls to the provider. Zero disables pacing.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbedding() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the LLM model name.
	Model string `toml:"model"`

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string `toml:"base_url"`

	// APIKey is the API key (for OpenAI/Anthropic/Gemini).
	APIKey string `toml:"api_key"`

	// MaxAttempts bounds generation calls per question, including the first.
	MaxAttempts int `toml:"max_attempts"`

	// MaxTokens caps the answer length.
	MaxTokens int `toml:"max_tokens"`

	// Temperature controls randomness.
	Temperature float64 `toml:"temperature"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend `toml:"backend"`

	// URL is the server address for remote backends.
	URL string `toml:"url"`

	// APIKey authenticates against remote backends.
	APIKey string `toml:"api_key"`

	// Collection is the Qdrant collection or Weaviate class name.
	// Empty derives one from the company when a run targets a single company.
	Collection string `toml:"collection"`
}

// PipelineSettings holds concurrency limits for pipeline runs.
type PipelineSettings struct {
	// DocumentConcurrency bounds documents processed in parallel.
	DocumentConcurrency int `toml:"document_concurrency"`

	// ChunkConcurrency bounds embedding calls in flight per document.
	ChunkConcurrency int `toml:"chunk_concurrency"`
}

// RetrievalSettings holds Q&A defaults.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int `toml:"top_k"`

	// MinScore discards hits below this similarity.
	MinScore float64 `toml:"min_score"`
}

// StorageSettings holds local storage paths.
type StorageSettings struct {
	// DataDir holds the metadata database. Defaults to ~/.filings/data.
	DataDir string `toml:"data_dir"`

	// Manifest is the default manifest path.
	Manifest string `toml:"manifest"`
}

// Config is the immutable configuration passed to every stage.
type Config struct {
	Chunking    ChunkStrategy       `toml:"chunking"`
	Embedding   EmbeddingSettings   `toml:"embedding"`
	LLM         LLMSettings         `toml:"llm"`
	VectorStore VectorStoreSettings `toml:"vector_store"`
	Pipeline    PipelineSettings    `toml:"pipeline"`
	Retrieval   RetrievalSettings   `toml:"retrieval"`
	Storage     StorageSettings     `toml:"storage"`
}

// Default configuration values.
const (
	DefaultChunkSize           = 200
	DefaultChunkOverlap        = 0
	DefaultEmbedMaxAttempts    = 3
	DefaultLLMMaxAttempts      = 2
	DefaultDocumentConcurrency = 2
	DefaultChunkConcurrency    = 4
	DefaultTopK                = 5
	DefaultLLMMaxTokens        = 1024

	// DefaultRetryBackoff is the base delay between retries; attempt n waits n times this.
	DefaultRetryBackoff = 500 * time.Millisecond
)

// DefaultConfig returns a configuration that works against a local Ollama
// with the embedded SQLite vector store.
func DefaultConfig() Config {
	return Config{
		Chunking: ChunkStrategy{
			Name: StrategySentence,
			Params: StrategyParams{
				ChunkSize: DefaultChunkSize,
				Overlap:   DefaultChunkOverlap,
				Unit:      UnitTokens,
			},
		},
		Embedding: EmbeddingSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultEmbeddingModels()[AIProviderOllama],
			MaxAttempts: DefaultEmbedMaxAttempts,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			MaxAttempts: DefaultLLMMaxAttempts,
			MaxTokens:   DefaultLLMMaxTokens,
		},
		VectorStore: VectorStoreSettings{
			Backend: VectorBackendSQLite,
		},
		Pipeline: PipelineSettings{
			DocumentConcurrency: DefaultDocumentConcurrency,
			ChunkConcurrency:    DefaultChunkConcurrency,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
	}
}

// Validate checks the whole configuration and reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if err := c.Chunking.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !c.Embedding.Provider.SupportsEmbedding() {
		errs = append(errs, fmt.Errorf("embedding.provider %q does not support embeddings", c.Embedding.Provider))
	} else if !c.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding.api_key is required for %s", c.Embedding.Provider))
	}
	if c.Embedding.MaxAttempts < 1 {
		errs = append(errs, errors.New("embedding.max_attempts must be at least 1"))
	}
	if c.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("embedding.requests_per_second cannot be negative"))
	}
	if !c.LLM.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("llm.provider %q is not recognised", c.LLM.Provider))
	} else if !c.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("llm.api_key is required for %s", c.LLM.Provider))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, errors.New("llm.max_attempts must be at least 1"))
	}
	if !c.VectorStore.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("vector_store.backend %q is not recognised", c.VectorStore.Backend))
	} else if c.VectorStore.Backend.IsRemote() && c.VectorStore.URL == "" {
		errs = append(errs, fmt.Errorf("vector_store.url is required for %s", c.VectorStore.Backend))
	}
	if c.Pipeline.DocumentConcurrency < 1 {
		errs = append(errs, errors.New("pipeline.document_concurrency must be at least 1"))
	}
	if c.Pipeline.ChunkConcurrency < 1 {
		errs = append(errs, errors.New("pipeline.chunk_concurrency must be at least 1"))
	}
	if c.Retrieval.TopK < 1 {
		errs = append(errs, errors.New("retrieval.top_k must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "gemini-embedding-001",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.0-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"gemini-embedding-001": 3072,
		"text-embedding-004":   768,
	}
}
