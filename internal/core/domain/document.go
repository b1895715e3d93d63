package domain

import "unicode/utf8"

// FileTypeDOCX is the file type tag recorded for Word documents.
const FileTypeDOCX = "docx"

// SectionType distinguishes prose runs from converted tables.
type SectionType string

const (
	// SectionText is a run of paragraphs between structural breaks.
	SectionText SectionType = "text"

	// SectionTable is a table converted to markdown.
	SectionTable SectionType = "table"
)

// Label returns the metadata type label for a file type, e.g. "docx_table".
func (t SectionType) Label(fileType string) string {
	return fileType + "_" + string(t)
}

// String returns the string representation.
func (t SectionType) String() string {
	return string(t)
}

// Section is one structurally coherent unit of extracted content.
// Sections of a document are ordered and gapless by Index.
type Section struct {
	// Content is the section text. Tables are rendered as markdown.
	Content string

	// Type is text or table.
	Type SectionType

	// Index is the 0-based position within the document.
	Index int

	// HasTable is true for sections that originated from a table.
	HasTable bool

	// Metadata is inherited by every chunk cut from this section.
	Metadata ChunkMetadata
}

// Length returns the section length in characters.
func (s Section) Length() int {
	return utf8.RuneCountInString(s.Content)
}

// Chunk is a bounded-length slice of a section submitted for embedding.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// StartOffset is the character offset of the chunk within its section.
	StartOffset int

	// Metadata is the section metadata plus the assigned chunk ID.
	Metadata ChunkMetadata

	// Embedding is the vector representation, set only when indexing.
	Embedding []float32
}

// ID returns the assigned chunk identifier, empty before ID assignment.
func (c Chunk) ID() string {
	return c.Metadata.ID
}

// Length returns the chunk length in characters.
func (c Chunk) Length() int {
	return utf8.RuneCountInString(c.Content)
}

// SearchHit is a chunk returned by similarity search.
type SearchHit struct {
	// Chunk is the matched chunk. Embedding is not populated.
	Chunk Chunk

	// Score is the distance to the query vector; lower is closer.
	Score float64
}
