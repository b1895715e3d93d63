package mcp

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	hits     []domain.SearchHit
	response *domain.QueryResponse
	stats    *domain.IndexStats
	err      error

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

func (m *mockQueryService) HasLLM() bool {
	return m.response != nil
}
