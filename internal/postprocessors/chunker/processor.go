// Package chunker provides the recursive character splitting processors.
package chunker

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// Policy is a windowing policy: target length, overlap and separator
// preference, all measured in characters.
type Policy struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// RegularPolicy returns the policy for prose sections.
func RegularPolicy() Policy {
	return Policy{
		ChunkSize:  1000,
		Overlap:    200,
		Separators: []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""},
	}
}

// TablePolicy returns the policy for table sections. Tables get a larger
// window and prefer to cut between rows.
func TablePolicy() Policy {
	return Policy{
		ChunkSize:  2000,
		Overlap:    200,
		Separators: []string{"\n\n---\n", "\n\n", "\n", " ", ""},
	}
}

// Processor splits the sections it owns into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	policy Policy
	tables bool
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.policy.ChunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.policy.Overlap = overlap
		}
	}
}

// WithSeparators replaces the separator preference order.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) > 0 {
			p.policy.Separators = separators
		}
	}
}

// New creates a processor for prose sections using RegularPolicy.
func New(opts ...Option) *Processor {
	return newProcessor(RegularPolicy(), false, opts)
}

// NewTable creates a processor for table sections using TablePolicy.
func NewTable(opts ...Option) *Processor {
	return newProcessor(TablePolicy(), true, opts)
}

func newProcessor(policy Policy, tables bool, opts []Option) *Processor {
	p := &Processor{policy: policy, tables: tables}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.policy.Overlap >= p.policy.ChunkSize {
		p.policy.Overlap = p.policy.ChunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	if p.tables {
		return domain.ProcessorTableChunker
	}
	return domain.ProcessorChunker
}

// Policy returns the effective windowing policy.
func (p *Processor) Policy() Policy {
	return p.policy
}

// Process appends the chunks of every section this processor owns (table
// sections for a table processor, the rest otherwise) to the incoming chunks.
// Each chunk inherits its section's metadata.
func (p *Processor) Process(ctx context.Context, sections []domain.Section, chunks []domain.Chunk) ([]domain.Chunk, error) {
	splitter := NewSplitter(p.policy.ChunkSize, p.policy.Overlap, p.policy.Separators)

	for _, section := range sections {
		if section.HasTable != p.tables {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, piece := range splitter.Split(section.Content) {
			chunks = append(chunks, domain.Chunk{
				Content:     piece.Text,
				StartOffset: piece.Offset,
				Metadata:    section.Metadata,
			})
		}
	}

	return chunks, nil
}
