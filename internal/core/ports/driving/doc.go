// Package driving declares the use cases the CLI, HTTP API, MCP server and
// chat screen call into. internal/core/services implements them.
package driving
