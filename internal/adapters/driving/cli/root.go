// Package cli provides the cobra command tree for kbrag.
// It is a driving adapter: commands call the core through driving ports
// injected by cmd/kbrag.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbrag/internal/core/ports/driving"
	"github.com/custodia-labs/kbrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services are the driving ports the commands use.
type Services struct {
	Ingest   driving.IngestService
	Query    driving.QueryService
	Settings driving.SettingsService

	// Unavailable explains why Ingest and Query are nil, e.g. an embedding
	// provider that is not configured. Settings commands still work.
	Unavailable error

	// Close releases adapter resources. Optional.
	Close func()
}

// Bootstrap builds services once flags are parsed.
type Bootstrap func(configDir string) (*Services, error)

var (
	ingestService   driving.IngestService
	queryService    driving.QueryService
	settingsService driving.SettingsService
	unavailable     error
	closeServices   func()

	bootstrap Bootstrap

	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "kbrag",
	Short: "Ask questions about a folder of Word documents",
	Long: `kbrag indexes a knowledge base of .docx files into a local vector index
and answers questions about them with retrieval-augmented generation.

Paragraphs and tables are extracted in document order, split into chunks with
deterministic IDs, embedded and stored incrementally: re-running ingestion only
embeds chunks that are not already indexed.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if closeServices != nil {
			closeServices()
			closeServices = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.kbrag)")
}

// Execute runs the root command. Command output goes to stdout so that
// --json results can be piped.
func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

// SetVersion sets the version reported by 'kbrag version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrap registers the function that builds services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	ingestService = s.Ingest
	queryService = s.Query
	settingsService = s.Settings
	unavailable = s.Unavailable
	closeServices = s.Close
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil {
		return nil
	}
	s, err := bootstrap(configDir)
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(s)
	return nil
}

func requireIngest() (driving.IngestService, error) {
	if ingestService != nil {
		return ingestService, nil
	}
	if unavailable != nil {
		return nil, unavailable
	}
	return nil, errors.New("ingest service not configured")
}

func requireQuery() (driving.QueryService, error) {
	if queryService != nil {
		return queryService, nil
	}
	if unavailable != nil {
		return nil, unavailable
	}
	return nil, errors.New("query service not configured")
}

func requireSettings() (driving.SettingsService, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	return settingsService, nil
}
