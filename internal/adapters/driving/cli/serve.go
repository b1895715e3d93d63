package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/kbrag/internal/adapters/driving/mcp"
)

var (
	serveAddr string
	serveMCP  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query API",
	Long: `Start the HTTP API for question answering.

Endpoints:
  GET  /health        Liveness and index check
  GET  /stats         Index statistics
  POST /query         {"question": "...", "k": 5} -> answer with sources
  POST /query/simple  {"question": "..."} -> answer only

With --mcp the Model Context Protocol endpoint is mounted at /mcp on the
same listener.

The listen address defaults to server.addr from the configuration (:8000).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve MCP at "+mcp.MountPath)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" && settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			addr = settings.Server.Addr
		}
	}
	if addr == "" {
		addr = ":8000"
	}

	server, err := httpapi.NewServer(svc)
	if err != nil {
		return err
	}

	if serveMCP {
		mcpServer, err := mcp.NewServer(&mcp.Ports{Query: svc})
		if err != nil {
			return err
		}
		server.Mount(mcp.MountPath, mcpServer.Handler())
	}

	if !svc.HasLLM() {
		cmd.PrintErrln("Warning: no LLM configured, /query will return 400 until DEEPSEEK_API_KEY is set")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "HTTP API listening on %s\n", addr)
	return server.ListenAndServe(ctx, addr)
}
