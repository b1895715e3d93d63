// Command kbrag indexes a folder of Word documents and answers questions
// about them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/kbrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/kbrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/kbrag/internal/connectors/filesystem"
	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/core/services"
	"github.com/custodia-labs/kbrag/internal/logger"
	"github.com/custodia-labs/kbrag/internal/normalisers/docx"
	"github.com/custodia-labs/kbrag/internal/postprocessors"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := file.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires adapters into services. Settings always work; ingest and
// query are left unavailable, with the reason, when no embedding provider
// can be built.
func bootstrap(configDir string) (*cli.Services, error) {
	store, err := file.NewConfigStore(configDir, file.WithEnv(os.LookupEnv, file.DefaultEnvBindings()))
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	settingsService := services.NewSettingsService(store, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	out := &cli.Services{Settings: settingsService}

	result, err := ai.Init(settings)
	if err != nil {
		out.Unavailable = err
		return out, nil
	}
	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}

	registry := postprocessors.NewDefaultRegistry()
	pipeline, err := postprocessors.NewPipelineFromConfig(registry, settings.Pipeline)
	if err != nil {
		result.Close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	promptDir := ""
	if configDir != "" {
		promptDir = filepath.Join(configDir, "prompts")
	}
	var prompts driven.PromptStore
	if ps, err := file.NewPromptStore(promptDir); err != nil {
		logger.Warn("Prompt files unavailable, using built-in prompts: %v", err)
	} else {
		prompts = ps
	}

	logger.Debug("Data: %s, index: %s", settings.Paths.Data, settings.Paths.IndexFile())

	out.Ingest = services.NewIngestService(
		filesystem.New(settings.Paths.Data),
		newExtractor(settings),
		pipeline,
		result.VectorIndex,
		result.EmbeddingService,
	)
	out.Query = services.NewQueryService(
		result.VectorIndex,
		result.EmbeddingService,
		result.LLMService,
		prompts,
	)
	out.Close = result.Close
	return out, nil
}

func newExtractor(settings *domain.AppSettings) *docx.Extractor {
	return docx.New(docx.WithTableLabel(settings.Extract.TableLabel))
}
