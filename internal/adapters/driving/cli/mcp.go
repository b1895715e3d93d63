package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbrag/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge base to MCP clients",
	Long: `Expose the knowledge base to AI assistants over the Model Context Protocol.

The server offers two tools, search_knowledge_base and ask_knowledge_base
(the latter needs an answer model), and the kbrag://stats resource.

JSON-RPC is spoken over stdin/stdout unless --http is given, in which case
the streamable HTTP transport listens on that address. To share one port
with the query API use 'kbrag serve --mcp' instead.

Client configuration for stdio:
  {"mcpServers": {"kbrag": {"command": "kbrag", "args": ["mcp", "serve"]}}}`,
	Example: `  kbrag mcp serve
  kbrag mcp serve --http :8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Query: svc})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mcpHTTPAddr == "" {
		// stdout carries the protocol; say nothing there.
		return server.Run(ctx)
	}

	cmd.PrintErrf("MCP server listening on %s\n", mcpHTTPAddr)
	return server.RunHTTP(ctx, mcpHTTPAddr)
}
