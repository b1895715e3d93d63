package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// DefaultTableLabel prefixes the numbered caption of each emitted table.
const DefaultTableLabel = domain.DefaultTableLabel

const documentPart = "word/document.xml"

// Extractor turns DOCX documents into ordered text and table sections.
type Extractor struct {
	tableLabel string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTableLabel sets the caption label written before each table,
// e.g. "Bảng" for Vietnamese knowledge bases.
func WithTableLabel(label string) Option {
	return func(e *Extractor) {
		if strings.TrimSpace(label) != "" {
			e.tableLabel = label
		}
	}
}

// New creates a new DOCX extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{tableLabel: DefaultTableLabel}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SupportedExtensions returns the file extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".docx"}
}

// FileType returns the metadata file type tag.
func (e *Extractor) FileType() string {
	return domain.FileTypeDOCX
}

// TableLabel returns the configured table caption label.
func (e *Extractor) TableLabel() string {
	return e.tableLabel
}

// Extract walks the document body in order. Paragraphs accumulate into text
// runs; each table closes the current run and, when it has at least a header
// and one data row, becomes its own markdown section.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawDocument) (*driven.ExtractResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filename := raw.Filename
	if filename == "" {
		filename = filepath.Base(raw.URI)
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: open archive: %w", domain.ErrExtractionFailed, filename, err)
	}

	part, err := openPart(reader, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailed, filename, err)
	}
	defer part.Close()

	blocks, err := parseBody(part)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse %s: %w", domain.ErrExtractionFailed, filename, documentPart, err)
	}

	sections, tables := e.buildSections(blocks, filename)

	return &driven.ExtractResult{
		Sections:   sections,
		TableCount: tables,
		Title:      extractTitle(reader, filename),
	}, nil
}

// buildSections groups blocks into sections and stamps their metadata.
func (e *Extractor) buildSections(blocks []block, filename string) ([]domain.Section, int) {
	var (
		sections []domain.Section
		run      []string
		tables   int
	)

	flush := func() {
		if len(run) == 0 {
			return
		}
		sections = append(sections, domain.Section{
			Content: strings.Join(run, "\n\n"),
			Type:    domain.SectionText,
		})
		run = nil
	}

	for _, b := range blocks {
		if !b.isTable {
			run = append(run, b.text)
			continue
		}

		// A table is a structural break even when it is too small to keep.
		flush()

		markdown := TableToMarkdown(b.rows)
		if markdown == "" {
			continue
		}
		tables++
		sections = append(sections, domain.Section{
			Content:  fmt.Sprintf("\n**%s %d:**\n%s\n", e.tableLabel, tables, markdown),
			Type:     domain.SectionTable,
			HasTable: true,
		})
	}
	flush()

	for i := range sections {
		s := &sections[i]
		s.Index = i
		s.Metadata = domain.ChunkMetadata{
			Source:     filename,
			Page:       i,
			Type:       s.Type.Label(domain.FileTypeDOCX),
			TotalPages: len(sections),
			HasTable:   s.HasTable,
			FileType:   domain.FileTypeDOCX,
		}
	}

	return sections, tables
}

// openPart opens a named part of the package.
func openPart(reader *zip.Reader, name string) (io.ReadCloser, error) {
	for _, file := range reader.File {
		if file.Name == name {
			return file.Open()
		}
	}
	return nil, fmt.Errorf("missing %s", name)
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads dc:title from docProps/core.xml, falling back to the
// filename without its extension.
func extractTitle(reader *zip.Reader, filename string) string {
	if rc, err := openPart(reader, "docProps/core.xml"); err == nil {
		content, err := io.ReadAll(rc)
		rc.Close()
		if err == nil {
			var core coreXML
			if err := xml.Unmarshal(content, &core); err == nil && strings.TrimSpace(core.Title) != "" {
				return strings.TrimSpace(core.Title)
			}
		}
	}

	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
