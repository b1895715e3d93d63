package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/logger"
)

// simpleResponse is the body of POST /query/simple.
type simpleResponse struct {
	Answer  string `json:"answer"`
	Success bool   `json:"success"`
}

// statsResponse is the body of GET /stats.
type statsResponse struct {
	TotalDocuments int               `json:"total_documents"`
	DatabasePath   string            `json:"database_path"`
	EmbeddingModel string            `json:"embedding_model"`
	LLMModel       string            `json:"llm_model"`
	LastRun        *domain.IngestRun `json:"last_run,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.query.Stats(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "index unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.query.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error getting stats: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalDocuments: stats.Chunks,
		DatabasePath:   stats.IndexPath,
		EmbeddingModel: stats.EmbeddingModel,
		LLMModel:       stats.LLMModel,
		LastRun:        stats.LastRun,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.answer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuerySimple(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.answer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, simpleResponse{Answer: resp.Answer, Success: resp.Success})
}

// answer decodes the request and runs the query, writing the error response
// itself when it fails.
func (s *Server) answer(w http.ResponseWriter, r *http.Request) (*domain.QueryResponse, bool) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}

	resp, err := s.query.Query(r.Context(), req)
	switch {
	case err == nil:
		return resp, true
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Question cannot be empty")
	case errors.Is(err, domain.ErrLLMUnavailable):
		writeError(w, http.StatusBadRequest, "LLM API key not set (DEEPSEEK_API_KEY)")
	default:
		logger.Error("query %q: %v", req.Question, err)
		writeError(w, http.StatusInternalServerError, "Error processing query: "+err.Error())
	}
	return nil, false
}
