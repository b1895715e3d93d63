package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

var (
	queryK     int
	queryJSON  bool
	searchK    int
	searchJSON bool
	statsJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from the knowledge base",
	Long: `Retrieves the chunks closest to the question and asks the LLM to answer
using only that context. Requires an LLM API key (DEEPSEEK_API_KEY).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Show the chunks closest to a question",
	Long: `Performs a similarity search over the index without generating an answer.
Scores are squared L2 distances: lower is closer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "top-k", "k", domain.DefaultQueryK, "number of chunks to retrieve")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the response as JSON")
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", domain.DefaultQueryK, "number of chunks to retrieve")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	resp, err := svc.Query(cmd.Context(), domain.QueryRequest{Question: question, K: queryK})
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			cmd.Println("No LLM configured. Set DEEPSEEK_API_KEY or run 'kbrag settings llm'.")
			cmd.Println("Use 'kbrag search' to see matching chunks without an answer.")
		}
		printDimensionHint(cmd.OutOrStdout(), err)
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, resp)
	}

	cmd.Println(resp.Answer)
	if len(resp.Sources) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println("Sources:")
	for _, src := range resp.Sources {
		cmd.Printf("  - %s (%.4f)\n", src.ID, src.Score)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	hits, err := svc.Search(cmd.Context(), strings.Join(args, " "), searchK)
	if err != nil {
		printDimensionHint(cmd.OutOrStdout(), err)
		return fmt.Errorf("search failed: %w", err)
	}

	sources := make([]domain.Source, len(hits))
	for i, hit := range hits {
		sources[i] = domain.NewSource(hit)
	}

	if searchJSON {
		return printJSON(cmd, sources)
	}

	if len(sources) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, src := range sources {
		cmd.Printf("  [%d] %s (%.4f)\n", i+1, src.ID, src.Score)
		cmd.Printf("      %s\n", strings.ReplaceAll(src.Content, "\n", " "))
		cmd.Println()
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	stats, err := svc.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if statsJSON {
		return printJSON(cmd, stats)
	}

	cmd.Println("Index")
	cmd.Println("=====")
	cmd.Printf("  Path:            %s\n", stats.IndexPath)
	cmd.Printf("  Chunks:          %d\n", stats.Chunks)
	cmd.Printf("  Embedding model: %s\n", stats.EmbeddingModel)
	llm := stats.LLMModel
	if llm == "" {
		llm = "(not configured)"
	}
	cmd.Printf("  LLM model:       %s\n", llm)

	if run := stats.LastRun; run != nil {
		cmd.Println()
		cmd.Println("Last ingest")
		cmd.Printf("  Finished:  %s\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
		cmd.Printf("  Documents: %d (%d failed)\n", run.Documents, run.Failed)
		cmd.Printf("  Chunks:    %d (%d new, %d skipped)\n", run.Chunks, run.Inserted, run.Skipped)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
