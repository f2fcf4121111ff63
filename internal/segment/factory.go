package segment

import (
	"fmt"
	"time"

	"github.com/dervan/noteforge/internal/config"
)

// New creates a Segmenter from application configuration.
func New(cfg *config.Config) (Segmenter, error) {
	retry := RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
		Multiplier:  cfg.Retry.Multiplier,
	}

	switch cfg.Provider.Name {
	case config.ProviderOllama:
		return NewOllamaProvider(OllamaOptions{
			BaseURL:       cfg.Provider.BaseURL,
			Model:         cfg.Provider.Model,
			PromptVersion: cfg.Provider.PromptVersion,
			Categories:    cfg.Categories.Allowed,
			Temperature:   cfg.Provider.Temperature,
			Timeout:       cfg.Provider.Timeout(),
			Retry:         retry,
		}), nil

	case config.ProviderOpenAI:
		return NewOpenAIProvider(OpenAIOptions{
			BaseURL:       cfg.Provider.BaseURL,
			APIKey:        cfg.Provider.APIKey,
			Model:         cfg.Provider.Model,
			PromptVersion: cfg.Provider.PromptVersion,
			Categories:    cfg.Categories.Allowed,
			Temperature:   cfg.Provider.Temperature,
			Timeout:       cfg.Provider.Timeout(),
			Retry:         retry,
		})

	case config.ProviderMock:
		return NewMockProvider(), nil

	default:
		return nil, fmt.Errorf("segment: unknown provider %q", cfg.Provider.Name)
	}
}
