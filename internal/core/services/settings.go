package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataPath        = "paths.data"
	keyIndexPath       = "paths.index"
	keyServerAddr      = "server.addr"
	keyTableLabel      = "extract.table_label"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyOllamaHost      = "embedding.ollama_host"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTimeout      = "llm.timeout_seconds"
	keyLLMMaxRetries   = "llm.max_retries"
	keyProcessorPrefix = "pipeline."
)

// processorKeys are the per-processor settings read from config.
var processorKeys = []string{"chunk_size", "overlap"}

// overrideReporter is implemented by stores that shadow keys with
// environment variables. Shadowed keys are never written back.
type overrideReporter interface {
	Overridden(key string) bool
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(keyEmbedProvider, defaults.Embedding.Provider)
	embedModel := s.configStore.GetString(keyEmbedModel)
	if embedModel == "" {
		embedModel = domain.DefaultEmbeddingModels()[provider]
	}

	settings := &domain.AppSettings{
		Paths: domain.PathSettings{
			Data:  s.getString(keyDataPath, defaults.Paths.Data),
			Index: s.getString(keyIndexPath, defaults.Paths.Index),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
		Extract: domain.ExtractSettings{
			TableLabel: s.getString(keyTableLabel, defaults.Extract.TableLabel),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             embedModel,
			BaseURL:           s.embeddingBaseURL(provider),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Model:      s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:    s.getString(keyLLMBaseURL, defaults.LLM.BaseURL),
			APIKey:     s.configStore.GetString(keyLLMAPIKey),
			Timeout:    s.getSeconds(keyLLMTimeout, defaults.LLM.Timeout),
			MaxRetries: s.getInt(keyLLMMaxRetries, defaults.LLM.MaxRetries),
		},
		Pipeline: s.GetPipelineConfig(),
	}

	return settings, nil
}

// Save persists application settings.
// Values shadowed by environment variables are left untouched in storage.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
		skip  bool
	}{
		{keyDataPath, settings.Paths.Data, false},
		{keyIndexPath, settings.Paths.Index, false},
		{keyServerAddr, settings.Server.Addr, false},
		{keyTableLabel, settings.Extract.TableLabel, false},
		{keyEmbedProvider, settings.Embedding.Provider.String(), false},
		{keyEmbedModel, settings.Embedding.Model, false},
		{keyEmbedBaseURL, settings.Embedding.BaseURL, s.hostOverridden(settings.Embedding.Provider)},
		{keyEmbedAPIKey, settings.Embedding.APIKey, settings.Embedding.APIKey == ""},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond, false},
		{keyLLMModel, settings.LLM.Model, false},
		{keyLLMBaseURL, settings.LLM.BaseURL, false},
		{keyLLMAPIKey, settings.LLM.APIKey, settings.LLM.APIKey == ""},
		{keyLLMTimeout, int(settings.LLM.Timeout / time.Second), false},
		{keyLLMMaxRetries, settings.LLM.MaxRetries, false},
	}

	for _, v := range values {
		if v.skip || s.overridden(v.key) {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	for name, cfg := range settings.Pipeline.ProcessorConfigs {
		for _, key := range processorKeys {
			val, ok := cfg[key]
			if !ok {
				continue
			}
			full := keyProcessorPrefix + name + "." + key
			if err := s.configStore.Set(full, val); err != nil {
				return fmt.Errorf("save %s: %w", full, err)
			}
		}
	}

	return nil
}

// SetPaths updates the knowledge base and index directories.
func (s *SettingsService) SetPaths(data, index string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if data != "" {
		settings.Paths.Data = data
	}
	if index != "" {
		settings.Paths.Index = index
	}
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.APIKey = apiKey

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = domain.DefaultEmbeddingBaseURLs()[provider]

	return s.Save(settings)
}

// SetLLM configures the answer model.
func (s *SettingsService) SetLLM(model, baseURL, apiKey string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if model != "" {
		settings.LLM.Model = model
	}
	if baseURL != "" {
		settings.LLM.BaseURL = strings.TrimRight(baseURL, "/")
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the settings can drive ingestion.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Paths.Data == "" {
		return fmt.Errorf("%w: data path is empty", domain.ErrInvalidInput)
	}
	if settings.Paths.Index == "" {
		return fmt.Errorf("%w: index path is empty", domain.ErrInvalidInput)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	for name, cfg := range settings.Pipeline.ProcessorConfigs {
		if size, ok := cfg["chunk_size"].(int); ok && size <= 0 {
			return fmt.Errorf("%w: %s chunk_size must be positive", domain.ErrInvalidInput, name)
		}
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Per-processor values under pipeline.<name>.<key> override the defaults.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	for _, name := range cfg.Processors {
		for _, key := range processorKeys {
			if _, exists := s.configStore.Get(keyProcessorPrefix + name + "." + key); exists {
				cfg.SetProcessorValue(name, key, s.configStore.GetInt(keyProcessorPrefix+name+"."+key))
			}
		}
	}

	return cfg
}

// embeddingBaseURL resolves the endpoint for a provider. OLLAMA_HOST wins
// for Ollama; otherwise the stored value, then the provider default.
func (s *SettingsService) embeddingBaseURL(provider domain.AIProvider) string {
	if provider == domain.AIProviderOllama {
		if host := s.configStore.GetString(keyOllamaHost); host != "" {
			return normaliseHost(host)
		}
	}
	if url := s.configStore.GetString(keyEmbedBaseURL); url != "" {
		return url
	}
	return domain.DefaultEmbeddingBaseURLs()[provider]
}

// normaliseHost accepts OLLAMA_HOST in its bare host:port form.
func normaliseHost(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

// hostOverridden reports whether the Ollama endpoint comes from OLLAMA_HOST.
func (s *SettingsService) hostOverridden(provider domain.AIProvider) bool {
	return provider == domain.AIProviderOllama && s.configStore.GetString(keyOllamaHost) != ""
}

func (s *SettingsService) overridden(key string) bool {
	r, ok := s.configStore.(overrideReporter)
	return ok && r.Overridden(key)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	n := s.configStore.GetInt(key)
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Second
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
