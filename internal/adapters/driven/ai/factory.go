// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"errors"
	"fmt"

	ollamaembed "github.com/custodia-labs/kbrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/kbrag/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/kbrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/kbrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

// InitResult contains the services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService // Nil when no answer model is configured.
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues, e.g. a missing LLM key.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds the embedding client, the optional LLM client and the SQLite
// index from settings. An embedding provider is mandatory; a missing LLM only
// adds a warning. Nothing is pinged.
func Init(settings *domain.AppSettings) (*InitResult, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no settings", domain.ErrInvalidInput)
	}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured. Run 'kbrag settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}

	result := &InitResult{
		EmbeddingService: embedder,
		VectorIndex:      sqlite.NewIndex(settings.Paths.Index),
	}

	llm, err := CreateLLMService(&settings.LLM)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("answer model disabled: %v", err))
	case llm == nil:
		result.Warnings = append(result.Warnings,
			"answer model disabled: no API key (set DEEPSEEK_API_KEY or run 'kbrag settings llm')")
	default:
		result.LLMService = llm
	}

	return result, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the OpenAI-compatible answer model client.
// Returns nil if no API key is configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	retries := settings.MaxRetries
	if retries == 0 {
		// Zero in settings means "no retries"; the client reads zero as its default.
		retries = -1
	}

	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		MaxRetries: retries,
	})
	if err != nil {
		return nil, errors.Join(domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}
