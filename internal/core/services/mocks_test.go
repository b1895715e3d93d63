package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors come from the vectors map, else a 2-d vector derived from length.
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	embedErr error
	batches  [][]string
	queries  []string
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return []float32{float32(len(text)), 1}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.queries = append(m.queries, text)
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.batches = append(m.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) embedded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func (m *mockEmbeddingService) Dimensions() int { return 2 }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error { return nil }

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	answer  string
	err     error
	prompts []string
	opts    []driven.GenerateOptions
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }
func (m *mockLLMService) Ping(context.Context) error { return nil }
func (m *mockLLMService) Close() error { return nil }

// mockSource implements driven.DocumentSource over in-memory files.
type mockSource struct {
	mu       sync.Mutex
	files    map[string][]byte
	readErr  map[string]error
	listErr  error
	changes  chan domain.FileChange
	watchErr error
}

func newMockSource(names ...string) *mockSource {
	s := &mockSource{files: make(map[string][]byte), readErr: make(map[string]error)}
	for _, n := range names {
		s.files[n] = []byte(n)
	}
	return s
}

func (m *mockSource) add(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = []byte(name)
}

func (m *mockSource) Root() string { return "/kb" }

func (m *mockSource) List(_ context.Context) ([]domain.SourceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.SourceFile, 0, len(m.files))
	for name, content := range m.files {
		out = append(out, domain.SourceFile{Path: "/kb/" + name, Name: name, Size: int64(len(content))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockSource) Read(_ context.Context, f domain.SourceFile) (*domain.RawDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErr[f.Name]; err != nil {
		return nil, err
	}
	return &domain.RawDocument{URI: f.Path, Filename: f.Name, Content: m.files[f.Name]}, nil
}

func (m *mockSource) Watch(_ context.Context) (<-chan domain.FileChange, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	return m.changes, nil
}

// mockExtractor implements driven.Extractor with canned sections per file.
type mockExtractor struct {
	results map[string]*driven.ExtractResult
}

func (m *mockExtractor) SupportedExtensions() []string { return []string{".docx"} }
func (m *mockExtractor) FileType() string { return domain.FileTypeDOCX }

func (m *mockExtractor) Extract(_ context.Context, raw *domain.RawDocument) (*driven.ExtractResult, error) {
	res, ok := m.results[raw.Filename]
	if !ok || res == nil {
		return nil, errors.Join(domain.ErrExtractionFailed, errors.New("not a zip file"))
	}
	return res, nil
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockAIConfigValidator implements driven.AIConfigValidator.
type mockAIConfigValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (m *mockAIConfigValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.embeddingErr
}

func (m *mockAIConfigValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}

// sections builds the sections a document would extract to.
func sections(filename string, contents ...string) []domain.Section {
	out := make([]domain.Section, len(contents))
	for i, c := range contents {
		table := len(c) > 0 && c[0] == '|'
		typ := domain.SectionText
		if table {
			typ = domain.SectionTable
		}
		out[i] = domain.Section{
			Content:  c,
			Type:     typ,
			Index:    i,
			HasTable: table,
			Metadata: domain.ChunkMetadata{
				Source:     filename,
				Page:       i,
				Type:       typ.Label(domain.FileTypeDOCX),
				TotalPages: len(contents),
				HasTable:   table,
				FileType:   domain.FileTypeDOCX,
			},
		}
	}
	return out
}
