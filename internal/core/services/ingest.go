package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/core/ports/driving"
	"github.com/custodia-labs/kbrag/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs the ingestion pipeline over a document source.
// Documents are processed sequentially and one run is active at a time.
type IngestService struct {
	source    driven.DocumentSource
	extractor driven.Extractor
	pipeline  driven.PostProcessorPipeline
	index     driven.VectorIndex
	writer    *IndexWriter

	mu      sync.Mutex
	running bool
	now     func() time.Time
}

// NewIngestService creates an ingest service.
func NewIngestService(
	source driven.DocumentSource,
	extractor driven.Extractor,
	pipeline driven.PostProcessorPipeline,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
) *IngestService {
	return &IngestService{
		source:    source,
		extractor: extractor,
		pipeline:  pipeline,
		index:     index,
		writer:    NewIndexWriter(index, embedder),
		now:       time.Now,
	}
}

// Ingest runs the pipeline once.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *IngestService) Ingest(ctx context.Context, opts driving.IngestOptions) (*domain.IngestReport, error) {
	if !s.begin() {
		return nil, domain.ErrIngestInProgress
	}
	defer s.end()

	report := &domain.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
	}
	defer func() {
		report.Duration = s.now().Sub(report.StartedAt)
	}()

	// 1. Optional reset
	if opts.Reset {
		logger.Section("Reset")
		if err := s.writer.Reset(ctx); err != nil {
			return report, err
		}
	}

	// 2. Discover documents
	logger.Section("Discover")
	files, err := s.source.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list documents: %w", err)
	}
	if len(files) == 0 {
		logger.Warn("No .docx files found in %s", s.source.Root())
		return report, fmt.Errorf("%w in %s", domain.ErrNoDocuments, s.source.Root())
	}
	logger.Info("Found %d documents in %s", len(files), s.source.Root())

	// 3. Extract sequentially; failures are recorded, not fatal
	logger.Section("Extract")
	var sections []domain.Section
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := s.extract(ctx, file)
		report.Documents = append(report.Documents, result)
		sections = append(sections, result.Sections...)
	}
	if len(sections) == 0 {
		return report, fmt.Errorf("%w: no document produced any content", domain.ErrNoDocuments)
	}

	// 4. Split, normalise and assign IDs
	logger.Section("Split")
	chunks, err := s.pipeline.Process(ctx, sections)
	if err != nil {
		return report, fmt.Errorf("split sections: %w", err)
	}
	if len(chunks) == 0 {
		return report, domain.ErrNoChunks
	}
	report.Chunks = domain.NewChunkStats(chunks)
	logger.Info("Split into %d chunks (%d regular, %d table)",
		report.Chunks.Total, report.Chunks.Regular, report.Chunks.Table)

	// 5. Write incrementally
	logger.Section("Index")
	write, err := s.writer.Write(ctx, chunks)
	if err != nil {
		return report, err
	}
	report.Write = *write

	// 6. Record the run
	s.record(ctx, report)

	return report, nil
}

// Reset deletes the persisted index.
func (s *IngestService) Reset(ctx context.Context) error {
	if !s.begin() {
		return domain.ErrIngestInProgress
	}
	defer s.end()
	return s.writer.Reset(ctx)
}

// Watch re-runs ingestion after source changes until ctx is cancelled.
// Changes already queued when a run starts are folded into that run.
func (s *IngestService) Watch(ctx context.Context, onRun func(*domain.IngestReport, error)) error {
	changes, err := s.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.source.Root(), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			logChange(change)
			more := drainChanges(changes)

			report, err := s.Ingest(ctx, driving.IngestOptions{})
			if onRun != nil {
				onRun(report, err)
			}
			if !more {
				return nil
			}
		}
	}
}

// drainChanges consumes changes that are already queued without blocking.
// It reports false once the channel is closed.
func drainChanges(changes <-chan domain.FileChange) bool {
	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return false
			}
			logChange(change)
		default:
			return true
		}
	}
}

func logChange(change domain.FileChange) {
	logger.Info("Detected %s: %s", change.Type, change.Path)
	if change.Type == domain.ChangeDeleted {
		logger.Warn("Chunks of deleted %s stay indexed until reset", change.Path)
	}
}

func (s *IngestService) extract(ctx context.Context, file domain.SourceFile) domain.DocumentResult {
	result := domain.DocumentResult{Filename: file.Name, Title: file.Name}

	raw, err := s.source.Read(ctx, file)
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		logger.Warn("Error processing %s: %v", file.Name, err)
		return result
	}

	extracted, err := s.extractor.Extract(ctx, raw)
	if err != nil {
		result.Err = err
		logger.Warn("Error processing %s: %v", file.Name, err)
		return result
	}

	result.Sections = extracted.Sections
	result.Tables = extracted.TableCount
	if extracted.Title != "" {
		result.Title = extracted.Title
	}
	for _, section := range extracted.Sections {
		result.Characters += section.Length()
	}

	logger.Info("%s: %d sections, %d tables, %d characters",
		file.Name, len(result.Sections), result.Tables, result.Characters)
	return result
}

func (s *IngestService) record(ctx context.Context, report *domain.IngestReport) {
	run := domain.IngestRun{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: s.now(),
		Documents:  len(report.Documents),
		Failed:     len(report.Failed()),
		Chunks:     report.Chunks.Total,
		Inserted:   report.Write.Inserted,
		Skipped:    report.Write.Skipped,
	}
	if err := s.index.RecordRun(ctx, run); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Failed to record ingest run %s: %v", run.ID, err)
	}
}

func (s *IngestService) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *IngestService) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
