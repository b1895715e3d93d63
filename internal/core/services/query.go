package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/core/ports/driving"
	"github.com/custodia-labs/kbrag/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// contextSeparator joins retrieved chunks inside the answer prompt.
const contextSeparator = "\n\n---\n\n"

// fallbackAnswerPrompt is used when no prompt store is configured.
const fallbackAnswerPrompt = "Answer the question based only on the following context:\n\n%s\n\n---\n\n" +
	"Answer the question based on the above context: %s"

// QueryService answers questions from the vector index.
// The LLM is optional; without it only Search and Stats work.
type QueryService struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	llm      driven.LLMService
	prompts  driven.PromptStore
}

// NewQueryService creates a query service. llm and prompts may be nil.
func NewQueryService(
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	prompts driven.PromptStore,
) *QueryService {
	return &QueryService{
		index:    index,
		embedder: embedder,
		llm:      llm,
		prompts:  prompts,
	}
}

// HasLLM reports whether answer generation is available.
func (s *QueryService) HasLLM() bool {
	return s.llm != nil
}

// Query retrieves context and generates an answer.
func (s *QueryService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	hits, err := s.Search(ctx, question, req.EffectiveK())
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		return &domain.QueryResponse{
			Answer:  domain.NoResultsAnswer,
			Sources: []domain.Source{},
			Success: true,
			Message: domain.NoResultsMessage,
		}, nil
	}

	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	prompt := s.buildPrompt(question, hits)
	logger.Debug("Prompt has %d characters from %d chunks", len(prompt), len(hits))

	answer, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		Temperature: 0,
		System:      s.loadPrompt(driven.PromptSystem, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]domain.Source, len(hits))
	for i, hit := range hits {
		sources[i] = domain.NewSource(hit)
	}

	return &domain.QueryResponse{
		Answer:  strings.TrimSpace(answer),
		Sources: sources,
		Success: true,
	}, nil
}

// Search embeds the question and returns the k closest chunks.
func (s *QueryService) Search(ctx context.Context, question string, k int) ([]domain.SearchHit, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if k <= 0 {
		k = domain.DefaultQueryK
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.index.SimilaritySearch(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	logger.Debug("Search %q returned %d hits", question, len(hits))
	return hits, nil
}

// Stats describes the index and the configured models.
func (s *QueryService) Stats(ctx context.Context) (*domain.IndexStats, error) {
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	count, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	stats := &domain.IndexStats{
		Chunks:    count,
		IndexPath: s.index.Path(),
	}
	if s.embedder != nil {
		stats.EmbeddingModel = s.embedder.ModelName()
	}
	if s.llm != nil {
		stats.LLMModel = s.llm.ModelName()
	}

	run, err := s.index.LastRun(ctx)
	switch {
	case err == nil:
		stats.LastRun = run
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("last run: %w", err)
	}

	return stats, nil
}

func (s *QueryService) buildPrompt(question string, hits []domain.SearchHit) string {
	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = hit.Chunk.Content
	}
	template := s.loadPrompt(driven.PromptAnswer, fallbackAnswerPrompt)
	return fmt.Sprintf(template, strings.Join(parts, contextSeparator), question)
}

func (s *QueryService) loadPrompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	prompt, err := s.prompts.Load(name)
	if err != nil {
		logger.Warn("Prompt %s unavailable: %v", name, err)
		return fallback
	}
	return prompt
}
