package domain

import (
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// IndexFileName is the SQLite file created inside the index directory.
const IndexFileName = "index.db"

// AIProvider identifies an AI service provider for embeddings.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
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
	default:
		return unknownDescription
	}
}

// PathSettings locates the knowledge base and its index.
type PathSettings struct {
	// Data is the directory scanned for documents.
	Data string

	// Index is the directory holding the persisted index.
	Index string
}

// IndexFile returns the full path of the index database.
func (p PathSettings) IndexFile() string {
	return filepath.Join(p.Index, IndexFileName)
}

// DefaultTableLabel captions emitted tables, e.g. "**Table 1:**".
const DefaultTableLabel = "Table"

// ExtractSettings configures document extraction.
type ExtractSettings struct {
	// TableLabel prefixes the numbered caption of each table, e.g. "Bảng".
	TableLabel string
}

// ServerSettings configures the HTTP query API.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond limits embedding calls. Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds configuration for the OpenAI-compatible answer model.
type LLMSettings struct {
	// Model is the chat model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the bearer credential.
	APIKey string

	// Timeout bounds a single completion request.
	Timeout time.Duration

	// MaxRetries is the number of retries after a failed request.
	MaxRetries int
}

// IsConfigured returns true if an answer model can be called.
func (l LLMSettings) IsConfigured() bool {
	return l.APIKey != "" && l.BaseURL != "" && l.Model != ""
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Paths locates documents and the index.
	Paths PathSettings

	// Server configures the HTTP API.
	Server ServerSettings

	// Extract configures document extraction.
	Extract ExtractSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds answer model settings.
	LLM LLMSettings

	// Pipeline configures the splitting pipeline.
	Pipeline PipelineConfig
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM has no API key by default; ingestion and search work without one.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Paths: PathSettings{
			Data:  "./knowledge-base",
			Index: "./kbrag_index",
		},
		Server: ServerSettings{
			Addr: ":8000",
		},
		Extract: ExtractSettings{
			TableLabel: DefaultTableLabel,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
			BaseURL:  "http://localhost:11434",
		},
		LLM: LLMSettings{
			Model:      "deepseek-chat",
			BaseURL:    "https://api.deepseek.com",
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "embeddinggemma:latest",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultEmbeddingBaseURLs returns default endpoints for each embedding provider.
func DefaultEmbeddingBaseURLs() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "http://localhost:11434",
		AIProviderOpenAI: "https://api.openai.com/v1",
	}
}

// Processor names understood by the pipeline registry.
const (
	ProcessorChunker      = "chunker"
	ProcessorTableChunker = "table_chunker"
	ProcessorMetadata     = "metadata"
	ProcessorChunkID      = "chunkid"
)

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// SetProcessorValue sets a single config value for a processor.
func (c *PipelineConfig) SetProcessorValue(name, key string, value any) {
	if c.ProcessorConfigs == nil {
		c.ProcessorConfigs = make(map[string]map[string]any)
	}
	if c.ProcessorConfigs[name] == nil {
		c.ProcessorConfigs[name] = make(map[string]any)
	}
	c.ProcessorConfigs[name][key] = value
}

// DefaultPipelineConfig returns the default pipeline configuration:
// prose and tables are split with separate size policies, then metadata is
// normalised and chunk IDs assigned.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{
			ProcessorChunker,
			ProcessorTableChunker,
			ProcessorMetadata,
			ProcessorChunkID,
		},
		ProcessorConfigs: map[string]map[string]any{
			ProcessorChunker: {
				"chunk_size": 1000,
				"overlap":    200,
			},
			ProcessorTableChunker: {
				"chunk_size": 2000,
				"overlap":    200,
			},
		},
	}
}
