package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

type mockQueryService struct {
	hasLLM   bool
	response *domain.QueryResponse
	hits     []domain.SearchHit
	stats    *domain.IndexStats
	err      error

	queried  int
	searched int
	lastK    int
}

func (m *mockQueryService) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	m.queried++
	m.lastK = req.K
	return m.response, m.err
}

func (m *mockQueryService) Search(_ context.Context, _ string, k int) ([]domain.SearchHit, error) {
	m.searched++
	m.lastK = k
	return m.hits, m.err
}

func (m *mockQueryService) Stats(_ context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockQueryService) HasLLM() bool { return m.hasLLM }

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{"nil ports", nil, ErrMissingQueryService},
		{"missing query", &Ports{}, ErrMissingQueryService},
		{"valid", &Ports{Query: &mockQueryService{}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.ports.Validate(), tt.want)
			if tt.want == nil {
				assert.NoError(t, tt.ports.Validate())
			}
		})
	}
}
