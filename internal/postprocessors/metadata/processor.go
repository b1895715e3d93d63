// Package metadata restricts chunk metadata to its storage-safe form.
package metadata

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// Processor normalises the metadata of every chunk.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a metadata processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return domain.ProcessorMetadata
}

// Process passes each chunk's metadata through the boundary normaliser.
func (p *Processor) Process(_ context.Context, _ []domain.Section, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].Metadata = Normalise(chunks[i].Metadata)
	}
	return chunks, nil
}

// Normalise round-trips metadata through its map form, so the record holds
// exactly what NormaliseMetadata would let into the index.
func Normalise(m domain.ChunkMetadata) domain.ChunkMetadata {
	return domain.ChunkMetadataFromMap(domain.NormaliseMetadata(m.Map()))
}
