package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/logger"
)

// IndexWriter writes chunks into the vector index incrementally.
// Only chunks whose ID is not yet indexed are embedded and inserted, so
// re-running ingestion over unchanged documents is free.
type IndexWriter struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
}

// NewIndexWriter creates a writer over the given index and embedder.
func NewIndexWriter(index driven.VectorIndex, embedder driven.EmbeddingService) *IndexWriter {
	return &IndexWriter{
		index:    index,
		embedder: embedder,
	}
}

// Write stores chunks not already present in the index.
// Chunks must carry IDs. Repeated IDs within the batch keep the first
// occurrence.
func (w *IndexWriter) Write(ctx context.Context, chunks []domain.Chunk) (*domain.WriteResult, error) {
	if w.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if w.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	unique, duplicates, err := dedupeChunks(chunks)
	if err != nil {
		return nil, err
	}
	result := &domain.WriteResult{Duplicates: duplicates}

	exists, err := w.index.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check index: %w", err)
	}

	fresh := unique
	if !exists {
		result.Created = true
		logger.Info("Creating new index at %s", w.index.Path())
	} else {
		existing, err := w.index.ExistingIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("load existing ids: %w", err)
		}
		result.Existing = len(existing)
		logger.Info("Index has %d existing chunks", len(existing))

		fresh = make([]domain.Chunk, 0, len(unique))
		for _, c := range unique {
			if _, ok := existing[c.ID()]; ok {
				result.Skipped++
				continue
			}
			fresh = append(fresh, c)
		}
	}

	if len(fresh) == 0 {
		logger.Info("No new chunks to add")
		return result, nil
	}

	if err := w.embed(ctx, fresh); err != nil {
		return nil, err
	}

	inserted, err := w.index.Insert(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("insert chunks: %w", err)
	}
	result.Inserted = inserted
	logger.Info("Added %d new chunks", inserted)

	return result, nil
}

// Reset deletes the persisted index.
func (w *IndexWriter) Reset(ctx context.Context) error {
	if w.index == nil {
		return domain.ErrVectorIndexUnavailable
	}
	if err := w.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	logger.Info("Index reset at %s", w.index.Path())
	return nil
}

// embed fills in the Embedding of every chunk in one batch call.
func (w *IndexWriter) embed(ctx context.Context, chunks []domain.Chunk) error {
	defer logger.Timed(fmt.Sprintf("embedding %d chunks", len(chunks)))()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

// dedupeChunks drops chunks whose ID was already seen earlier in the slice.
func dedupeChunks(chunks []domain.Chunk) ([]domain.Chunk, int, error) {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]domain.Chunk, 0, len(chunks))
	duplicates := 0

	for _, c := range chunks {
		id := c.ID()
		if id == "" {
			return nil, 0, fmt.Errorf("%w: chunk from %s has no id", domain.ErrInvalidInput, c.Metadata.Source)
		}
		if _, ok := seen[id]; ok {
			logger.Warn("Duplicate chunk id %s, keeping first occurrence", id)
			duplicates++
			continue
		}
		seen[id] = struct{}{}
		out = append(out, c)
	}
	return out, duplicates, nil
}
