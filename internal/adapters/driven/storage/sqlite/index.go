package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Index is a SQLite-backed driven.VectorIndex.
// The database is opened lazily: read operations on a missing index return
// empty results without creating anything.
type Index struct {
	mu   sync.Mutex
	dir  string
	path string
	db   *sql.DB
}

// NewIndex returns an index stored under dir. Nothing is created until the
// first write.
func NewIndex(dir string) *Index {
	return &Index{
		dir:  dir,
		path: filepath.Join(dir, domain.IndexFileName),
	}
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.path
}

// Exists reports whether the database file has been created.
func (x *Index) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(x.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat index: %w", err)
	}
}

// ExistingIDs returns the set of stored chunk IDs.
func (x *Index) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	db, err := x.open(false)
	if err != nil || db == nil {
		return ids, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Insert stores chunks in one transaction. Chunks whose ID already exists
// are left untouched. Returns the number of rows actually inserted.
func (x *Index) Insert(ctx context.Context, chunks []domain.Chunk) (int, error) {
	for _, c := range chunks {
		if c.ID() == "" {
			return 0, fmt.Errorf("%w: chunk without id", domain.ErrInvalidInput)
		}
		if len(c.Embedding) == 0 {
			return 0, fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, c.ID())
		}
	}

	db, err := x.open(true)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	dims, err := storedDimensions(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := domain.CheckDimensions(dims, chunks); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, content, source, page, has_table, metadata, embedding, dimensions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(timeLayout)
	inserted := 0
	for _, c := range chunks {
		metadataJSON, err := json.Marshal(domain.NormaliseMetadata(c.Metadata.Map()))
		if err != nil {
			return 0, fmt.Errorf("marshalling metadata of %s: %w", c.ID(), err)
		}

		res, err := stmt.ExecContext(ctx,
			c.ID(), c.Content, c.Metadata.Source, c.Metadata.Page, c.Metadata.HasTable,
			string(metadataJSON), float32SliceToBytes(c.Embedding), len(c.Embedding), now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting chunk %s: %w", c.ID(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing chunks: %w", err)
	}
	return inserted, nil
}

// SimilaritySearch scans all chunks and returns the k closest to query by
// squared L2 distance, ascending. Ties are broken by chunk ID.
func (x *Index) SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	db, err := x.open(false)
	if err != nil || db == nil {
		return nil, err
	}

	dims, err := storedDimensions(ctx, db)
	if err != nil {
		return nil, err
	}
	if dims != 0 && len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(query), dims)
	}

	rows, err := db.QueryContext(ctx, `SELECT id, content, metadata, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			id, content, metadataJSON string
			blob                      []byte
		)
		if err := rows.Scan(&id, &content, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		meta, err := decodeMetadata(metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		meta.ID = id

		hits = append(hits, domain.SearchHit{
			Chunk: domain.Chunk{Content: content, Metadata: meta},
			Score: domain.SquaredL2(query, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Chunk.ID() < hits[j].Chunk.ID()
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored chunks.
func (x *Index) Count(ctx context.Context) (int, error) {
	db, err := x.open(false)
	if err != nil || db == nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Reset closes the database and deletes the index directory.
func (x *Index) Reset(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.db != nil {
		if err := x.db.Close(); err != nil {
			return fmt.Errorf("closing index: %w", err)
		}
		x.db = nil
	}
	if err := os.RemoveAll(x.dir); err != nil {
		return fmt.Errorf("removing %s: %w", x.dir, err)
	}
	return nil
}

// RecordRun stores the summary of an ingestion run.
func (x *Index) RecordRun(ctx context.Context, run domain.IngestRun) error {
	db, err := x.open(true)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, started_at, finished_at, documents, failed, chunks, inserted, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			documents = excluded.documents,
			failed = excluded.failed,
			chunks = excluded.chunks,
			inserted = excluded.inserted,
			skipped = excluded.skipped
	`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.Documents, run.Failed, run.Chunks, run.Inserted, run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recently finished run.
func (x *Index) LastRun(ctx context.Context) (*domain.IngestRun, error) {
	db, err := x.open(false)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, domain.ErrNotFound
	}

	var (
		run               domain.IngestRun
		started, finished string
	)
	err = db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, documents, failed, chunks, inserted, skipped
		FROM ingest_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&run.ID, &started, &finished, &run.Documents, &run.Failed, &run.Chunks, &run.Inserted, &run.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying last run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("parsing finished_at: %w", err)
	}
	return &run, nil
}

// Close closes the database connection if open.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.db == nil {
		return nil
	}
	err := x.db.Close()
	x.db = nil
	return err
}

// open returns the database handle. With create false a missing database
// yields a nil handle and no error.
func (x *Index) open(create bool) (*sql.DB, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.db != nil {
		return x.db, nil
	}

	if !create {
		if _, err := os.Stat(x.path); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
	}

	if err := os.MkdirAll(x.dir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", x.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db, migrationFS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	x.db = db
	return db, nil
}

// decodeMetadata parses stored JSON through the boundary normaliser.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// storedDimensions returns the embedding width of the stored chunks, or 0
// when the index is empty.
func storedDimensions(ctx context.Context, q rowQuerier) (int, error) {
	var dims int
	err := q.QueryRowContext(ctx, `SELECT dimensions FROM chunks LIMIT 1`).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading embedding dimensions: %w", err)
	}
	return dims, nil
}

func decodeMetadata(raw string) (domain.ChunkMetadata, error) {
	if raw == "" {
		return domain.ChunkMetadata{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return domain.ChunkMetadata{}, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return domain.ChunkMetadataFromMap(m), nil
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
