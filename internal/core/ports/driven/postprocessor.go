package driven

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// PostProcessor turns sections into chunks or refines existing chunks.
// PostProcessors are chained in a pipeline (splitting, normalisation, ID assignment).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process receives all sections of a run and the chunks produced so far.
	// Splitters append the chunks cut from the sections they own.
	// Refiners (metadata, chunk IDs) rewrite the chunks they receive.
	Process(ctx context.Context, sections []domain.Section, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs the configured processors in order.
type PostProcessorPipeline interface {
	// Process starts from no chunks and returns what the last processor produced.
	Process(ctx context.Context, sections []domain.Section) ([]domain.Chunk, error)
}
