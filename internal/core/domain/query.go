package domain

import "unicode/utf8"

// DefaultQueryK is the number of chunks retrieved when K is unset.
const DefaultQueryK = 5

// SourcePreviewLength caps the characters of a source shown in a response.
const SourcePreviewLength = 200

// NoResultsAnswer is returned when retrieval finds nothing.
const NoResultsAnswer = "I couldn't find any relevant information in the knowledge base to answer this question."

// NoResultsMessage accompanies NoResultsAnswer.
const NoResultsMessage = "No relevant documents found"

// QueryRequest is a question against the knowledge base.
type QueryRequest struct {
	// Question is the natural-language question.
	Question string `json:"question"`

	// K is the number of chunks to retrieve. Values <= 0 mean DefaultQueryK.
	K int `json:"k,omitempty"`
}

// EffectiveK returns K, or DefaultQueryK when K is not positive.
func (r QueryRequest) EffectiveK() int {
	if r.K <= 0 {
		return DefaultQueryK
	}
	return r.K
}

// Source is a retrieved chunk cited by an answer.
type Source struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// NewSource builds a cited source from a hit, truncating long content.
func NewSource(hit SearchHit) Source {
	id := hit.Chunk.ID()
	if id == "" {
		id = "unknown"
	}
	return Source{
		ID:      id,
		Content: Preview(hit.Chunk.Content, SourcePreviewLength),
		Score:   hit.Score,
	}
}

// Preview truncates s to at most n characters, appending "..." when cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// QueryResponse is the answer to a QueryRequest.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
}

// IndexStats describes the state of the knowledge base index.
type IndexStats struct {
	// Chunks is the number of indexed chunks.
	Chunks int `json:"chunks"`

	// IndexPath is the persisted index location.
	IndexPath string `json:"index_path"`

	// EmbeddingModel is the configured embedding model.
	EmbeddingModel string `json:"embedding_model"`

	// LLMModel is the configured answer model, empty if none.
	LLMModel string `json:"llm_model,omitempty"`

	// LastRun is the most recent ingestion run, nil if none.
	LastRun *IngestRun `json:"last_run,omitempty"`
}
