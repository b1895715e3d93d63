// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// QuestionAsked is a command to answer a question.
type QuestionAsked struct {
	Question string
}

// AnswerReceived carries the answer to a question back to the model.
// Without an answer model, Hits holds the raw retrieval results instead.
type AnswerReceived struct {
	Question string
	Response *domain.QueryResponse
	Hits     []domain.SearchHit
	Err      error
}

// StatsLoaded carries index statistics shown in the header.
type StatsLoaded struct {
	Stats *domain.IndexStats
	Err   error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
