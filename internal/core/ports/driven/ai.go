package driven

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// EmbeddingService maps text to vectors. Chunks and questions must go
// through the same model or index distances mean nothing.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector size, or 0 while unknown.
	Dimensions() int
	ModelName() string

	// Ping checks reachability without running inference where possible.
	Ping(ctx context.Context) error
	Close() error
}

// LLMService completes a retrieval-augmented prompt. It is optional: with a
// nil LLMService only search and stats are served.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions tunes one completion.
type GenerateOptions struct {
	// MaxTokens caps the reply. Zero leaves it to the provider.
	MaxTokens int

	Temperature float64

	// System, when set, is sent as the system message.
	System string
}

// AIConfigValidator pings providers on behalf of the settings commands.
// Unconfigured settings validate as nil.
type AIConfigValidator interface {
	ValidateEmbedding(settings *domain.EmbeddingSettings) error
	ValidateLLM(settings *domain.LLMSettings) error
}

// PromptStore serves editable prompt templates by name.
type PromptStore interface {
	Load(name string) (string, error)

	// Reload drops cached templates.
	Reload()
}

// Prompt names.
const (
	// PromptAnswer takes two %s verbs: the joined context, then the question.
	PromptAnswer = "answer"

	// PromptSystem is sent verbatim as the system message.
	PromptSystem = "system"
)
