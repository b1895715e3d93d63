package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driving"
)

var (
	ingestReset bool
	ingestTest  bool
	ingestWatch bool
	ingestProbe string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the knowledge base",
	Long: `Extracts every .docx file in the data directory, splits it into chunks
and writes chunks that are not yet indexed.

Chunk IDs are deterministic, so running ingest again only embeds new content.
Use --reset to rebuild the index from scratch and --watch to re-ingest after
each change to the data directory.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the index",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "delete the index before ingesting")
	ingestCmd.Flags().BoolVar(&ingestTest, "test", false, "run a retrieval smoke test after ingesting")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "re-ingest whenever the data directory changes")
	ingestCmd.Flags().StringVar(&ingestProbe, "probe", "What is this document about?", "question used by --test")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(resetCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	svc, err := requireIngest()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ingestReset {
		cmd.Println("Clearing index...")
	}
	report, err := svc.Ingest(ctx, driving.IngestOptions{Reset: ingestReset})
	if done, err := handleIngestResult(cmd.OutOrStdout(), report, err); done {
		return err
	}

	if ingestTest {
		if err := runRetrievalTest(ctx, cmd); err != nil {
			return err
		}
	}

	if !ingestWatch {
		return nil
	}

	cmd.Println()
	cmd.Println("Watching for changes (Ctrl+C to stop)...")
	return svc.Watch(ctx, func(report *domain.IngestReport, err error) {
		if _, err := handleIngestResult(cmd.OutOrStdout(), report, err); err != nil {
			cmd.PrintErrf("Error: %v\n", err)
		}
	})
}

// handleIngestResult prints a run outcome. It reports done when the command
// should stop, with the error to return. Empty input is a diagnostic, not a failure.
func handleIngestResult(w io.Writer, report *domain.IngestReport, err error) (bool, error) {
	switch {
	case err == nil:
		printReport(w, report)
		return false, nil
	case errors.Is(err, domain.ErrNoDocuments), errors.Is(err, domain.ErrNoChunks):
		printFailures(w, report)
		color.New(color.FgYellow).Fprintf(w, "Nothing to index: %v\n", err)
		return !ingestWatch, nil
	default:
		printFailures(w, report)
		printDimensionHint(w, err)
		return true, fmt.Errorf("ingest failed: %w", err)
	}
}

// printDimensionHint explains a width mismatch, which follows a change of
// embedding model on an existing index.
func printDimensionHint(w io.Writer, err error) {
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		return
	}
	color.New(color.FgYellow).Fprintln(w, "The index was built with a different embedding model.")
	fmt.Fprintln(w, "Run 'kbrag ingest --reset' to rebuild it with the current one.")
}

func printReport(w io.Writer, r *domain.IngestReport) {
	if r == nil {
		return
	}
	title := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)

	fmt.Fprintln(w)
	title.Fprintf(w, "Ingestion complete in %s\n", r.Duration.Round(time.Millisecond))

	failed := r.Failed()
	label.Fprint(w, "  Documents: ")
	fmt.Fprintf(w, "%d processed, %d failed\n", r.Succeeded(), len(failed))
	printFailures(w, r)

	label.Fprint(w, "  Sections:  ")
	fmt.Fprintf(w, "%d (%d tables)\n", r.Sections(), r.Tables())

	c := r.Chunks
	label.Fprint(w, "  Chunks:    ")
	fmt.Fprintf(w, "%d (%d regular, %d table; length avg %d, min %d, max %d)\n",
		c.Total, c.Regular, c.Table, c.AvgLen, c.MinLen, c.MaxLen)

	wr := r.Write
	label.Fprint(w, "  Index:     ")
	if wr.Created {
		fmt.Fprintf(w, "created with %d chunks", wr.Inserted)
	} else {
		fmt.Fprintf(w, "%d new, %d already indexed (%d before this run)", wr.Inserted, wr.Skipped, wr.Existing)
	}
	if wr.Duplicates > 0 {
		fmt.Fprintf(w, ", %d duplicate IDs dropped", wr.Duplicates)
	}
	fmt.Fprintln(w)

	if wr.Inserted == 0 && !wr.Created {
		color.New(color.Faint).Fprintln(w, "  No new documents to add")
	}
}

func printFailures(w io.Writer, r *domain.IngestReport) {
	if r == nil {
		return
	}
	bad := color.New(color.FgRed)
	for _, d := range r.Failed() {
		bad.Fprintf(w, "    x %s: %v\n", d.Filename, d.Err)
	}
}

func runRetrievalTest(ctx context.Context, cmd *cobra.Command) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	cmd.Println()
	cmd.Printf("Retrieval test: %q\n", ingestProbe)
	hits, err := svc.Search(ctx, ingestProbe, 3)
	if err != nil {
		return fmt.Errorf("retrieval test failed: %w", err)
	}
	if len(hits) == 0 {
		cmd.Println("  No chunks retrieved.")
		return nil
	}
	for i, hit := range hits {
		src := domain.NewSource(hit)
		cmd.Printf("  [%d] %s (%.4f)\n", i+1, src.ID, src.Score)
		cmd.Printf("      %s\n", domain.Preview(hit.Chunk.Content, 100))
	}
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	svc, err := requireIngest()
	if err != nil {
		return err
	}
	if err := svc.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println("Index cleared.")
	return nil
}
