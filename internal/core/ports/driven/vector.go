package driven

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// VectorIndex is the persisted chunk index: upsert-by-id, similarity search
// with score, count and reset.
type VectorIndex interface {
	// Exists reports whether the persisted index has been created.
	Exists(ctx context.Context) (bool, error)

	// ExistingIDs returns the set of chunk IDs already stored.
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)

	// Insert stores chunks keyed by ID, creating the index if needed.
	// Chunks whose ID is already present are left untouched.
	// Every chunk must carry an embedding.
	Insert(ctx context.Context, chunks []domain.Chunk) (int, error)

	// SimilaritySearch returns the k chunks closest to the query vector,
	// ordered by ascending distance.
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Reset deletes the persisted index entirely.
	Reset(ctx context.Context) error

	// RecordRun stores the summary of a completed ingestion run.
	RecordRun(ctx context.Context, run domain.IngestRun) error

	// LastRun returns the most recent run, or domain.ErrNotFound.
	LastRun(ctx context.Context) (*domain.IngestRun, error)

	// Path returns the persisted location.
	Path() string

	// Close releases resources.
	Close() error
}
