package driven

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// Extractor turns the raw bytes of one document into ordered sections.
// Each extractor handles one file format.
type Extractor interface {
	// SupportedExtensions returns the lower-case file extensions handled, e.g. ".docx".
	SupportedExtensions() []string

	// FileType returns the file type tag written into chunk metadata.
	FileType() string

	// Extract parses a document. Errors wrap domain.ErrExtractionFailed.
	Extract(ctx context.Context, raw *domain.RawDocument) (*ExtractResult, error)
}

// ExtractResult contains the output of extraction.
// Splitting into chunks is handled by the PostProcessor pipeline.
type ExtractResult struct {
	// Sections are in document order with gapless indices from 0.
	Sections []domain.Section

	// TableCount is the number of table sections emitted.
	TableCount int

	// Title is the document title, falling back to the filename.
	Title string
}
