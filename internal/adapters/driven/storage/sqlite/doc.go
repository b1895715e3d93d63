// Package sqlite provides the persisted vector index on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files. Chunks are keyed by their deterministic ID; embeddings are stored as
// little-endian float32 blobs and metadata as normalised JSON. A second table
// records ingestion runs.
//
// # Data Location
//
// The database lives at <index dir>/index.db. It is created on first write,
// and Reset deletes the whole index directory.
//
// # Thread Safety
//
// All operations are thread-safe. The database runs in WAL mode so queries
// can proceed while an ingestion run writes.
package sqlite
