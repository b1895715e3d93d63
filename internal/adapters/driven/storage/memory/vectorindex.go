package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory driven.VectorIndex with brute-force search.
type VectorIndex struct {
	mu      sync.RWMutex
	created bool
	dims    int
	order   []string
	chunks  map[string]domain.Chunk
	runs    []domain.IngestRun
}

// NewVectorIndex creates an empty, not yet created, index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		chunks: make(map[string]domain.Chunk),
	}
}

// Exists reports whether anything has been inserted since creation or reset.
func (v *VectorIndex) Exists(_ context.Context) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.created, nil
}

// ExistingIDs returns the set of stored chunk IDs.
func (v *VectorIndex) ExistingIDs(_ context.Context) (map[string]struct{}, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make(map[string]struct{}, len(v.chunks))
	for id := range v.chunks {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Insert stores chunks whose ID is not yet present.
func (v *VectorIndex) Insert(_ context.Context, chunks []domain.Chunk) (int, error) {
	for _, c := range chunks {
		if c.ID() == "" {
			return 0, fmt.Errorf("%w: chunk without id", domain.ErrInvalidInput)
		}
		if len(c.Embedding) == 0 {
			return 0, fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, c.ID())
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := domain.CheckDimensions(v.dims, chunks); err != nil {
		return 0, err
	}
	v.created = true
	if v.dims == 0 && len(chunks) > 0 {
		v.dims = len(chunks[0].Embedding)
	}

	inserted := 0
	for _, c := range chunks {
		if _, ok := v.chunks[c.ID()]; ok {
			continue
		}
		v.chunks[c.ID()] = c
		v.order = append(v.order, c.ID())
		inserted++
	}
	return inserted, nil
}

// SimilaritySearch returns the k chunks closest to query by squared L2
// distance. Ties keep insertion order.
func (v *VectorIndex) SimilaritySearch(_ context.Context, query []float32, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	if v.dims != 0 && len(query) != v.dims {
		dims := v.dims
		v.mu.RUnlock()
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(query), dims)
	}
	hits := make([]domain.SearchHit, 0, len(v.order))
	for _, id := range v.order {
		c := v.chunks[id]
		score := domain.SquaredL2(query, c.Embedding)
		c.Embedding = nil
		hits = append(hits, domain.SearchHit{Chunk: c, Score: score})
	}
	v.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score < hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored chunks.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks), nil
}

// Reset drops all chunks and runs.
func (v *VectorIndex) Reset(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created = false
	v.dims = 0
	v.order = nil
	v.chunks = make(map[string]domain.Chunk)
	v.runs = nil
	return nil
}

// RecordRun appends a run to the history.
func (v *VectorIndex) RecordRun(_ context.Context, run domain.IngestRun) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.runs = append(v.runs, run)
	return nil
}

// LastRun returns the most recently recorded run.
func (v *VectorIndex) LastRun(_ context.Context) (*domain.IngestRun, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.runs) == 0 {
		return nil, domain.ErrNotFound
	}
	run := v.runs[len(v.runs)-1]
	return &run, nil
}

// Path returns a placeholder location.
func (v *VectorIndex) Path() string {
	return ":memory:"
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}
