package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/core/ports/driving"
	"github.com/custodia-labs/kbrag/internal/postprocessors"
)

type ingestFixture struct {
	source    *mockSource
	extractor *mockExtractor
	index     *memory.VectorIndex
	embedder  *mockEmbeddingService
	service   *IngestService
}

func newIngestFixture(names ...string) *ingestFixture {
	f := &ingestFixture{
		source:    newMockSource(names...),
		extractor: &mockExtractor{results: make(map[string]*driven.ExtractResult)},
		index:     memory.NewVectorIndex(),
		embedder:  &mockEmbeddingService{},
	}
	f.service = NewIngestService(f.source, f.extractor, postprocessors.NewDefaultPipeline(), f.index, f.embedder)
	return f
}

func (f *ingestFixture) extractsTo(name string, contents ...string) {
	tables := 0
	for _, c := range contents {
		if strings.HasPrefix(c, "|") {
			tables++
		}
	}
	f.extractor.results[name] = &driven.ExtractResult{
		Sections:   sections(name, contents...),
		TableCount: tables,
		Title:      strings.TrimSuffix(name, ".docx"),
	}
}

func TestIngestService_Ingest_WorkedExample(t *testing.T) {
	f := newIngestFixture("report.docx")
	f.extractsTo("report.docx",
		strings.Repeat("a", 600),
		"| Q | Revenue |\n| --- | --- |\n| Q1 | 10 |",
		strings.Repeat("b", 50),
	)

	report, err := f.service.Ingest(context.Background(), driving.IngestOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Succeeded())
	assert.Equal(t, 3, report.Sections())
	assert.Equal(t, 1, report.Tables())
	assert.Equal(t, 3, report.Chunks.Total)
	assert.Equal(t, 1, report.Chunks.Table)
	assert.Equal(t, 2, report.Chunks.Regular)
	assert.True(t, report.Write.Created)
	assert.Equal(t, 3, report.Write.Inserted)

	ids, err := f.index.ExistingIDs(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ids, "report.docx:docx:page_0:chunk_0")
	assert.Contains(t, ids, "report.docx:docx:page_1_table:chunk_0")
	assert.Contains(t, ids, "report.docx:docx:page_2:chunk_0")
}

func TestIngestService_Ingest_SecondRunInsertsNothing(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture("a.docx")
	f.extractsTo("a.docx", "alpha", "beta")

	_, err := f.service.Ingest(ctx, driving.IngestOptions{})
	require.NoError(t, err)

	report, err := f.service.Ingest(ctx, driving.IngestOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Write.Inserted)
	assert.Equal(t, 2, report.Write.Skipped)
}

func TestIngestService_Ingest_NewFileAddsOnlyItsChunks(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture("old.docx")
	old := make([]string, 100)
	for i := range old {
		old[i] = "section " + strings.Repeat("x", i+1)
	}
	f.extractsTo("old.docx", old...)

	_, err := f.service.Ingest(ctx, driving.IngestOptions{})
	require.NoError(t, err)
	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 100, count)

	f.source.add("new.docx")
	f.extractsTo("new.docx", "brand new", "also new")

	report, err := f.service.Ingest(ctx, driving.IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Write.Inserted)

	count, err = f.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 102, count)
}

func TestIngestService_Ingest_FailedDocumentDoesNotAbort(t *testing.T) {
	f := newIngestFixture("bad.docx", "good.docx")
	f.extractsTo("good.docx", "good content")

	report, err := f.service.Ingest(context.Background(), driving.IngestOptions{})
	require.NoError(t, err)

	require.Len(t, report.Documents, 2)
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "bad.docx", failed[0].Filename)
	assert.ErrorIs(t, failed[0].Err, domain.ErrExtractionFailed)
	assert.Equal(t, 1, report.Write.Inserted)
}

func TestIngestService_Ingest_ReadFailureRecorded(t *testing.T) {
	f := newIngestFixture("locked.docx", "good.docx")
	f.source.readErr["locked.docx"] = errors.New("permission denied")
	f.extractsTo("good.docx", "text")

	report, err := f.service.Ingest(context.Background(), driving.IngestOptions{})
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)
	assert.ErrorIs(t, report.Failed()[0].Err, domain.ErrExtractionFailed)
}

func TestIngestService_Ingest_NoDocuments(t *testing.T) {
	f := newIngestFixture()

	report, err := f.service.Ingest(context.Background(), driving.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrNoDocuments)
	require.NotNil(t, report)
	assert.Empty(t, report.Documents)
}

func TestIngestService_Ingest_AllDocumentsFail(t *testing.T) {
	f := newIngestFixture("bad.docx")

	report, err := f.service.Ingest(context.Background(), driving.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrNoDocuments)
	require.NotNil(t, report)
	assert.Len(t, report.Failed(), 1)
}

func TestIngestService_Ingest_NoChunks(t *testing.T) {
	f := newIngestFixture("blank.docx")
	f.extractsTo("blank.docx", "   ")

	_, err := f.service.Ingest(context.Background(), driving.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrNoChunks)
}

func TestIngestService_Ingest_ListError(t *testing.T) {
	f := newIngestFixture()
	f.source.listErr = errors.New("io error")

	_, err := f.service.Ingest(context.Background(), driving.IngestOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list documents")
}

func TestIngestService_Ingest_Reset(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture("a.docx")
	f.extractsTo("a.docx", "alpha")

	_, err := f.service.Ingest(ctx, driving.IngestOptions{})
	require.NoError(t, err)

	report, err := f.service.Ingest(ctx, driving.IngestOptions{Reset: true})
	require.NoError(t, err)
	assert.True(t, report.Write.Created)
	assert.Equal(t, 1, report.Write.Inserted)
}

func TestIngestService_Ingest_RecordsRun(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture("a.docx", "b.docx")
	f.extractsTo("a.docx", "alpha")

	report, err := f.service.Ingest(ctx, driving.IngestOptions{})
	require.NoError(t, err)

	run, err := f.index.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, run.ID)
	assert.Equal(t, 2, run.Documents)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 1, run.Inserted)
}

func TestIngestService_Ingest_InProgress(t *testing.T) {
	f := newIngestFixture("a.docx")
	require.True(t, f.service.begin())
	defer f.service.end()

	_, err := f.service.Ingest(context.Background(), driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrIngestInProgress)
	assert.ErrorIs(t, f.service.Reset(context.Background()), domain.ErrIngestInProgress)
}

func TestIngestService_Ingest_CancelledContext(t *testing.T) {
	f := newIngestFixture("a.docx")
	f.extractsTo("a.docx", "alpha")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Ingest(ctx, driving.IngestOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestService_Watch_RerunsOnChange(t *testing.T) {
	f := newIngestFixture("a.docx")
	f.extractsTo("a.docx", "alpha")
	f.source.changes = make(chan domain.FileChange, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs := make(chan *domain.IngestReport, 1)
	done := make(chan error, 1)
	go func() {
		done <- f.service.Watch(ctx, func(r *domain.IngestReport, err error) {
			if err == nil {
				runs <- r
			}
		})
	}()

	f.source.changes <- domain.FileChange{Type: domain.ChangeCreated, Path: "/kb/a.docx"}

	select {
	case r := <-runs:
		assert.Equal(t, 1, r.Write.Inserted)
	case <-ctx.Done():
		t.Fatal("watch did not trigger an ingest run")
	}

	close(f.source.changes)
	require.NoError(t, <-done)
}

func TestIngestService_Watch_FoldsQueuedChanges(t *testing.T) {
	f := newIngestFixture("a.docx", "b.docx", "c.docx")
	f.extractsTo("a.docx", "alpha")
	f.extractsTo("b.docx", "beta")
	f.extractsTo("c.docx", "gamma")
	f.source.changes = make(chan domain.FileChange, 3)
	f.source.changes <- domain.FileChange{Type: domain.ChangeCreated, Path: "/kb/a.docx"}
	f.source.changes <- domain.FileChange{Type: domain.ChangeUpdated, Path: "/kb/b.docx"}
	f.source.changes <- domain.FileChange{Type: domain.ChangeCreated, Path: "/kb/c.docx"}
	close(f.source.changes)

	var reports []*domain.IngestReport
	err := f.service.Watch(context.Background(), func(r *domain.IngestReport, err error) {
		require.NoError(t, err)
		reports = append(reports, r)
	})

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 3, reports[0].Write.Inserted)
}

func TestIngestService_Watch_Error(t *testing.T) {
	f := newIngestFixture()
	f.source.watchErr = errors.New("too many open files")

	err := f.service.Watch(context.Background(), nil)
	require.Error(t, err)
}
