package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find similar knowledge base passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []domain.Source `json:"results"`
	Count   int             `json:"count"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the knowledge base"`
	K        int    `json:"k,omitempty" jsonschema:"number of passages used as context (default 5)"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge_base",
		Description: "Return the knowledge base passages closest to a query, without generating an answer",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_knowledge_base",
		Description: "Answer a question using only the knowledge base, citing the passages used",
	}, s.handleAsk)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	k := domain.QueryRequest{K: input.K}.EffectiveK()

	hits, err := s.ports.Query.Search(ctx, input.Query, k)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]domain.Source, len(hits)),
		Count:   len(hits),
	}
	for i, hit := range hits {
		output.Results[i] = domain.NewSource(hit)
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, domain.QueryResponse, error) {
	resp, err := s.ports.Query.Query(ctx, domain.QueryRequest{Question: input.Question, K: input.K})
	if err != nil {
		return nil, domain.QueryResponse{}, err
	}
	return nil, *resp, nil
}
