package driving

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// IngestOptions configures an ingestion run.
type IngestOptions struct {
	// Reset deletes the index before ingesting.
	Reset bool
}

// IngestService builds the index from the knowledge base directory.
type IngestService interface {
	// Ingest runs the pipeline once: list, extract, split, assign IDs and
	// write only chunks not already indexed. Returns domain.ErrNoDocuments
	// or domain.ErrNoChunks, together with the partial report, when there
	// is nothing to index.
	Ingest(ctx context.Context, opts IngestOptions) (*domain.IngestReport, error)

	// Reset deletes the persisted index.
	Reset(ctx context.Context) error

	// Watch re-runs ingestion after each change to the knowledge base until
	// ctx is cancelled. onRun receives the outcome of every run.
	Watch(ctx context.Context, onRun func(*domain.IngestReport, error)) error
}
