package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or processor type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Ingestion Errors.

	// ErrExtractionFailed indicates a document could not be read or parsed.
	// It is recorded per document and never aborts a run.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNoDocuments indicates the knowledge base yielded no usable documents.
	ErrNoDocuments = errors.New("no documents found")

	// ErrNoChunks indicates splitting produced nothing to index.
	ErrNoChunks = errors.New("no chunks produced")

	// ErrDimensionMismatch indicates embeddings whose width differs from the
	// vectors already in the index, typically after switching embedding model.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIngestInProgress indicates an ingestion run is already active.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// Service Availability Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Neither ingestion nor retrieval can run without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)
