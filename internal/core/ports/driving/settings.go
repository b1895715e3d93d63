package driving

import "github.com/custodia-labs/kbrag/internal/core/domain"

// SettingsService reads and edits config.toml for the settings commands and
// the bootstrap.
type SettingsService interface {
	// Get returns defaults overlaid with the file and then the environment.
	Get() (*domain.AppSettings, error)
	GetDefaults() domain.AppSettings
	Save(settings *domain.AppSettings) error

	// SetPaths changes the data and index directories. Empty keeps the current value.
	SetPaths(data, index string) error

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLM changes the answer model. Empty model or baseURL keep the current value.
	SetLLM(model, baseURL, apiKey string) error

	// Validate reports settings that would stop ingestion from running.
	Validate() error

	// ValidateEmbeddingConfig and ValidateLLMConfig ping the configured providers.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
