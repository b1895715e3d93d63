package postprocessors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// mockProcessor is a test processor that returns predefined chunks.
type mockProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, _ []domain.Section, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	return chunks, nil
}

func testSection(index int, content string, table bool) domain.Section {
	typ := domain.SectionText
	if table {
		typ = domain.SectionTable
	}
	return domain.Section{
		Content:  content,
		Type:     typ,
		Index:    index,
		HasTable: table,
		Metadata: domain.ChunkMetadata{
			Source:     "a.docx",
			Page:       index,
			Type:       typ.Label(domain.FileTypeDOCX),
			TotalPages: 2,
			HasTable:   table,
			FileType:   domain.FileTypeDOCX,
		},
	}
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if p.Len() != 0 {
		t.Errorf("expected 0 processors, got %d", p.Len())
	}
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	p.Add(&mockProcessor{name: "test"})

	if p.Len() != 1 {
		t.Errorf("expected 1 processor, got %d", p.Len())
	}
}

func TestPipeline_Process_EmptyPipeline(t *testing.T) {
	p := NewPipeline()

	chunks, err := p.Process(context.Background(), []domain.Section{testSection(0, "text", false)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected nil chunks from empty pipeline, got %v", chunks)
	}
}

func TestPipeline_Process_MultipleProcessors(t *testing.T) {
	secondChunks := []domain.Chunk{
		{Content: "modified"},
		{Content: "added"},
	}

	p := NewPipeline(
		&mockProcessor{name: "first", chunks: []domain.Chunk{{Content: "first"}}},
		&mockProcessor{name: "second", chunks: secondChunks},
	)

	chunks, err := p.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != len(secondChunks) {
		t.Errorf("expected %d chunks, got %d", len(secondChunks), len(chunks))
	}
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	expectedErr := errors.New("processor failed")

	p := NewPipeline(&mockProcessor{name: "failing", err: expectedErr})

	_, err := p.Process(context.Background(), nil)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected wrapped error, got: %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "failing") {
		t.Errorf("expected processor name in error, got: %v", err)
	}
}

func TestPipeline_Process_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(&mockProcessor{name: "noop"})

	if _, err := p.Process(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewPipelineFromConfig_UnknownProcessor(t *testing.T) {
	r := NewDefaultRegistry()

	cfg := domain.PipelineConfig{Processors: []string{"chunker", "nope"}}
	_, err := NewPipelineFromConfig(r, cfg)
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestNewPipelineFromConfig_Empty(t *testing.T) {
	_, err := NewPipelineFromConfig(NewRegistry(), domain.PipelineConfig{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewDefaultPipeline_Order(t *testing.T) {
	got := NewDefaultPipeline().Names()
	want := []string{"chunker", "table_chunker", "metadata", "chunkid"}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("processor %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestNewDefaultPipeline_EndToEnd(t *testing.T) {
	table := "\n**Table 1:**\n| A | B |\n| --- | --- |\n| 1 | 2 |\n"
	sections := []domain.Section{
		testSection(0, strings.Repeat("word ", 300), false),
		testSection(1, table, true),
	}

	chunks, err := NewDefaultPipeline().Process(context.Background(), sections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}

	last := chunks[len(chunks)-1]
	if last.ID() != "a.docx:docx:page_1_table:chunk_0" {
		t.Errorf("unexpected table chunk id %q", last.ID())
	}
	if chunks[0].ID() != "a.docx:docx:page_0:chunk_0" {
		t.Errorf("unexpected first chunk id %q", chunks[0].ID())
	}
	for _, c := range chunks {
		if c.Length() > 1000 {
			t.Errorf("chunk %s exceeds size: %d", c.ID(), c.Length())
		}
	}
}
