// Package chunkid assigns deterministic, reproducible chunk identifiers.
//
// An ID has the form <source>:<file_type>:page_<page>[_table][_ocr]:chunk_<n>.
// The counter n restarts at 0 whenever the page identity changes and counts
// successive chunks sharing it, so the same documents always produce the same
// IDs. That is what makes incremental indexing by ID diff possible.
package chunkid

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// Placeholders for missing metadata.
const (
	UnknownSource   = "UNKNOWN_SOURCE"
	UnknownFileType = "unknown"
)

// PageID returns the page identity shared by all chunks of one section.
func PageID(m domain.ChunkMetadata) string {
	source := m.Source
	if source == "" {
		source = UnknownSource
	}
	fileType := m.FileType
	if fileType == "" {
		fileType = UnknownFileType
	}

	var sb strings.Builder
	sb.WriteString(source)
	sb.WriteByte(':')
	sb.WriteString(fileType)
	sb.WriteString(":page_")
	sb.WriteString(strconv.Itoa(m.Page))
	if m.HasTable {
		sb.WriteString("_table")
	}
	if m.UsedOCR {
		sb.WriteString("_ocr")
	}
	return sb.String()
}

// Less orders chunks by (source, page, has_table, start_offset).
func Less(a, b domain.Chunk) bool {
	am, bm := a.Metadata, b.Metadata
	if am.Source != bm.Source {
		return am.Source < bm.Source
	}
	if am.Page != bm.Page {
		return am.Page < bm.Page
	}
	if am.HasTable != bm.HasTable {
		return !am.HasTable
	}
	return a.StartOffset < b.StartOffset
}

// IsSorted reports whether chunks are already in assignment order.
func IsSorted(chunks []domain.Chunk) bool {
	return sort.SliceIsSorted(chunks, func(i, j int) bool {
		return Less(chunks[i], chunks[j])
	})
}

// Assign returns a copy of chunks in assignment order with IDs set.
// Input order does not matter: chunks are stably sorted first, so equal keys
// keep their split order.
func Assign(chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)

	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i], out[j])
	})

	var (
		prev    string
		counter int
	)
	for i := range out {
		page := PageID(out[i].Metadata)
		if i > 0 && page == prev {
			counter++
		} else {
			counter = 0
		}
		out[i].Metadata.ID = page + ":chunk_" + strconv.Itoa(counter)
		prev = page
	}
	return out
}

// Processor assigns IDs as the last pipeline stage.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a chunk ID processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return domain.ProcessorChunkID
}

// Process sorts the chunks and assigns their IDs.
func (p *Processor) Process(_ context.Context, _ []domain.Section, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return Assign(chunks), nil
}
