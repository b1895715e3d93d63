package driving

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// QueryService answers questions against the index.
type QueryService interface {
	// Query retrieves the closest chunks and asks the LLM to answer from them.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)

	// Search returns the k closest chunks without generating an answer.
	Search(ctx context.Context, question string, k int) ([]domain.SearchHit, error)

	// Stats describes the index.
	Stats(ctx context.Context) (*domain.IndexStats, error)

	// HasLLM reports whether answer generation is available.
	HasLLM() bool
}
