package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbrag/internal/adapters/driving/tui"
)

var chatK int

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive terminal chat",
	Long: `Launch a terminal chat over the knowledge base.

Each question is answered from the closest chunks, with their IDs and scores
listed under the answer. Without an LLM the chat shows the retrieved chunks.

Controls:
  Enter       Ask
  PgUp/PgDn   Scroll the transcript
  Ctrl+L      Clear the transcript
  F1          Toggle help
  Esc         Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&chatK, "top-k", "k", 0, "number of chunks to retrieve per question")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Print stack traces that the alternate screen would otherwise hide
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	svc, err := requireQuery()
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Query: svc})
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	if err := app.WithContext(cmd.Context()).WithK(chatK).Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
