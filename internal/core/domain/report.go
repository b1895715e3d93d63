package domain

import "time"

// DocumentResult is the outcome of extracting one document.
// A failed document carries Err and no sections; it never aborts a run.
type DocumentResult struct {
	// Filename is the document's base filename.
	Filename string

	// Title is the document title, falling back to the filename.
	Title string

	// Sections are the extracted sections in document order.
	Sections []Section

	// Tables is the number of tables emitted as sections.
	Tables int

	// Characters is the total character count of all sections.
	Characters int

	// Err is the extraction failure reason, nil on success.
	Err error
}

// OK reports whether extraction succeeded.
func (r DocumentResult) OK() bool {
	return r.Err == nil
}

// ChunkStats summarises the chunks produced by a run.
type ChunkStats struct {
	Total   int
	Regular int
	Table   int
	AvgLen  int
	MinLen  int
	MaxLen  int
}

// NewChunkStats computes statistics over chunks.
func NewChunkStats(chunks []Chunk) ChunkStats {
	var s ChunkStats
	if len(chunks) == 0 {
		return s
	}

	sum := 0
	for i, c := range chunks {
		if c.Metadata.HasTable {
			s.Table++
		} else {
			s.Regular++
		}
		n := c.Length()
		sum += n
		if i == 0 || n < s.MinLen {
			s.MinLen = n
		}
		if n > s.MaxLen {
			s.MaxLen = n
		}
	}
	s.Total = len(chunks)
	s.AvgLen = sum / len(chunks)
	return s
}

// WriteResult is the outcome of an incremental index write.
type WriteResult struct {
	// Created is true when the index did not exist before the write.
	Created bool

	// Existing is the number of chunk IDs already in the index.
	Existing int

	// Inserted is the number of new chunks embedded and stored.
	Inserted int

	// Skipped is the number of chunks whose ID was already indexed.
	Skipped int

	// Duplicates is the number of repeated IDs dropped within the batch.
	Duplicates int
}

// IngestReport is the outcome of one ingestion run.
type IngestReport struct {
	// RunID uniquely identifies the run.
	RunID string

	// Documents holds one result per discovered document.
	Documents []DocumentResult

	// Chunks summarises the produced chunks.
	Chunks ChunkStats

	// Write is the index write outcome.
	Write WriteResult

	// StartedAt is when the run began.
	StartedAt time.Time

	// Duration is the total wall time.
	Duration time.Duration
}

// Succeeded returns the number of documents that extracted cleanly.
func (r *IngestReport) Succeeded() int {
	n := 0
	for _, d := range r.Documents {
		if d.OK() {
			n++
		}
	}
	return n
}

// Failed returns the documents that could not be extracted.
func (r *IngestReport) Failed() []DocumentResult {
	var failed []DocumentResult
	for _, d := range r.Documents {
		if !d.OK() {
			failed = append(failed, d)
		}
	}
	return failed
}

// Sections returns the total section count across documents.
func (r *IngestReport) Sections() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Sections)
	}
	return n
}

// Tables returns the total table count across documents.
func (r *IngestReport) Tables() int {
	n := 0
	for _, d := range r.Documents {
		n += d.Tables
	}
	return n
}

// IngestRun is a persisted summary of a completed ingestion run.
type IngestRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Documents  int
	Failed     int
	Chunks     int
	Inserted   int
	Skipped    int
}
