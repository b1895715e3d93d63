package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/kbrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driving"
	"github.com/custodia-labs/kbrag/internal/core/services"
)

type mockIngestService struct {
	report   *domain.IngestReport
	err      error
	resetErr error

	lastOpts driving.IngestOptions
	ingested int
	resets   int
	watched  int
}

func (m *mockIngestService) Ingest(_ context.Context, opts driving.IngestOptions) (*domain.IngestReport, error) {
	m.ingested++
	m.lastOpts = opts
	return m.report, m.err
}

func (m *mockIngestService) Reset(_ context.Context) error {
	m.resets++
	return m.resetErr
}

func (m *mockIngestService) Watch(_ context.Context, onRun func(*domain.IngestReport, error)) error {
	m.watched++
	onRun(m.report, m.err)
	return nil
}

type mockQueryService struct {
	response *domain.QueryResponse
	hits     []domain.SearchHit
	stats    *domain.IndexStats
	err      error
	hasLLM   bool

	lastQuestion string
	lastK        int
}

func (m *mockQueryService) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	m.lastQuestion = req.Question
	m.lastK = req.K
	return m.response, m.err
}

func (m *mockQueryService) Search(_ context.Context, question string, k int) ([]domain.SearchHit, error) {
	m.lastQuestion = question
	m.lastK = k
	return m.hits, m.err
}

func (m *mockQueryService) Stats(_ context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockQueryService) HasLLM() bool { return m.hasLLM }

type testServices struct {
	ingest   *mockIngestService
	query    *mockQueryService
	settings *services.SettingsService
	store    *memory.ConfigStore
}

// setupTestServices injects mocks and an in-memory settings service.
// The returned cleanup restores services and flag values.
func setupTestServices() (*testServices, func()) {
	store := memory.NewConfigStore()
	ts := &testServices{
		ingest: &mockIngestService{report: sampleReport()},
		query: &mockQueryService{
			hasLLM: true,
			response: &domain.QueryResponse{
				Answer:  "Refunds are processed within 14 days.",
				Sources: []domain.Source{{ID: "policy.docx:docx:page_1:chunk_0", Content: "Refunds...", Score: 0.42}},
				Success: true,
			},
			hits:  []domain.SearchHit{sampleHit()},
			stats: &domain.IndexStats{Chunks: 3, IndexPath: "/tmp/kbrag_index/index.db", EmbeddingModel: "embeddinggemma:latest"},
		},
		settings: services.NewSettingsService(store, nil),
		store:    store,
	}
	SetServices(&Services{Ingest: ts.ingest, Query: ts.query, Settings: ts.settings})

	return ts, func() {
		SetServices(nil)
		bootstrap = nil
		resetFlags()
	}
}

func resetFlags() {
	verbose = false
	configDir = ""
	ingestReset, ingestTest, ingestWatch = false, false, false
	ingestProbe = "What is this document about?"
	queryK, searchK, chatK = domain.DefaultQueryK, domain.DefaultQueryK, 0
	queryJSON, searchJSON, statsJSON = false, false, false
	serveAddr, serveMCP = "", false
	versionShort = false
	mcpHTTPAddr = ""
	settingsDataPath, settingsIndexPath = "", ""
}

func sampleHit() domain.SearchHit {
	return domain.SearchHit{
		Chunk: domain.Chunk{
			Content: "Refunds are processed\nwithin 14 days.",
			Metadata: domain.ChunkMetadata{
				Source: "policy.docx", Page: 1, Type: "docx_text", ID: "policy.docx:docx:page_1:chunk_0",
				TotalPages: 2, FileType: "docx",
			},
		},
		Score: 0.42,
	}
}

func sampleReport() *domain.IngestReport {
	return &domain.IngestReport{
		RunID: "run-1",
		Documents: []domain.DocumentResult{
			{Filename: "policy.docx", Sections: make([]domain.Section, 2), Tables: 1},
			{Filename: "broken.docx", Err: domain.ErrExtractionFailed},
		},
		Chunks: domain.ChunkStats{Total: 3, Regular: 2, Table: 1, AvgLen: 400, MinLen: 50, MaxLen: 600},
		Write:  domain.WriteResult{Created: true, Inserted: 3},
	}
}

// execute runs the root command with args and stdin, returning combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
