package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// DefaultPingTimeout bounds a single connectivity check.
const DefaultPingTimeout = 5 * time.Second

// pinger is the part of an AI client the validator needs.
type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// ConfigValidator checks settings by building a throwaway client and pinging it.
// Unconfigured settings are not an error: there is nothing to check yet.
type ConfigValidator struct {
	Timeout time.Duration
}

// NewConfigValidator returns a validator using DefaultPingTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{Timeout: DefaultPingTimeout}
}

// ValidateEmbedding pings the configured embedding provider.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if err := v.ping(svc); err != nil {
		return fmt.Errorf("%w: %s at %s unreachable (%w). Run 'kbrag settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, settings.Provider, settings.BaseURL, err)
	}
	return nil
}

// ValidateLLM pings the configured answer model endpoint with its API key.
func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if err := v.ping(svc); err != nil {
		return fmt.Errorf("%w: %s rejected the request (%w). Run 'kbrag settings llm' to fix",
			domain.ErrLLMUnavailable, settings.BaseURL, err)
	}
	return nil
}

func (v *ConfigValidator) ping(svc pinger) error {
	defer svc.Close() //nolint:errcheck

	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svc.Ping(ctx)
}
