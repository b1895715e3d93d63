// Package mcp provides an MCP (Model Context Protocol) server adapter for kbrag.
// It lets AI assistants search the knowledge base and ask grounded questions.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
