// Package config defines the noteforge configuration and its YAML loader.
package config

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config represents the application configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Provider   ProviderConfig   `yaml:"provider"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Cache      CacheConfig      `yaml:"cache"`
	Retry      RetryConfig      `yaml:"retry"`
	Categories CategoriesConfig `yaml:"categories"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Input.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.Provider.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.Similarity.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	return c.Categories.Validate()
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// InputConfig holds the input directory and file selection patterns.
type InputConfig struct {
	Dir     string   `yaml:"dir"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Validate validates the input configuration.
func (c *InputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// OutputConfig holds the output vault directory.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// ProviderConfig holds segmentation provider settings.
type ProviderConfig struct {
	Name          string  `yaml:"name"`
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	PromptVersion string  `yaml:"prompt_version"`
	Temperature   float64 `yaml:"temperature"`
	TimeoutSec    int     `yaml:"timeout_seconds"`
}

// Timeout returns the per-call provider timeout.
func (c *ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Validate validates the provider configuration.
func (c *ProviderConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required,
			validation.In(ProviderOllama, ProviderOpenAI, ProviderMock)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.PromptVersion, validation.Required),
		validation.Field(&c.TimeoutSec, validation.Min(1)),
	); err != nil {
		return err
	}
	if c.Name == ProviderOpenAI && c.APIKey == "" {
		return fmt.Errorf("provider: %q requires api_key", ProviderOpenAI)
	}
	return nil
}

// PipelineConfig holds worker pool and chunking settings.
type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	ChunkSize int `yaml:"chunk_size"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(256)),
		validation.Field(&c.ChunkSize, validation.Required, validation.Min(1024)),
	)
}

// SimilarityConfig holds linking thresholds.
type SimilarityConfig struct {
	Threshold float64 `yaml:"threshold"`
	MaxLinks  int     `yaml:"max_links"`
}

// Validate validates the similarity configuration.
func (c *SimilarityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Threshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MaxLinks, validation.Required, validation.Min(1)),
	)
}

// CacheConfig holds response cache settings.
//
// Path points at the on-disk cache database. An unreadable or corrupt
// database is downgraded to an in-memory cache with a warning; the cache
// is an optimization, never a source of truth.
type CacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	MemoryEntries int    `yaml:"memory_entries"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MemoryEntries, validation.Min(0)),
	)
}

// RetryConfig holds provider retry and backoff settings.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMS int     `yaml:"base_delay_ms"`
	MaxDelayMS  int     `yaml:"max_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.BaseDelayMS, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxDelayMS, validation.Required, validation.Min(1)),
		validation.Field(&c.Multiplier, validation.Required, validation.Min(1.0)),
	)
}

// CategoriesConfig holds the recognized-category allowlist and the
// fallback used when the provider suggests something unrecognized.
type CategoriesConfig struct {
	Allowed []string `yaml:"allowed"`
	Default string   `yaml:"default"`
}

// Validate validates the categories configuration.
func (c *CategoriesConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Allowed, validation.Required, validation.Length(1, 0)),
		validation.Field(&c.Default, validation.Required),
	); err != nil {
		return err
	}
	for _, a := range c.Allowed {
		if a == c.Default {
			return nil
		}
	}
	return fmt.Errorf("categories: default %q is not in the allowed list", c.Default)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: slog.LevelInfo,
		},
		Input: InputConfig{
			Dir:     "./txt",
			Include: []string{"*.txt", "*.md"},
			Exclude: []string{"*.tmp", "~*"},
		},
		Output: OutputConfig{
			Dir: "./vault",
		},
		Provider: ProviderConfig{
			Name:          ProviderOllama,
			Model:         "mistral",
			PromptVersion: "v1",
			Temperature:   0.7,
			TimeoutSec:    120,
		},
		Pipeline: PipelineConfig{
			Workers:   4,
			ChunkSize: 1_000_000,
		},
		Similarity: SimilarityConfig{
			Threshold: 0.3,
			MaxLinks:  5,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Path:          ".noteforge/cache.db",
			MemoryEntries: 1024,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMS: 100,
			MaxDelayMS:  5000,
			Multiplier:  2.0,
		},
		Categories: CategoriesConfig{
			Allowed: []string{
				"Technology", "Finance", "Personal",
				"Projects", "Knowledge", "Reference",
			},
			Default: "Knowledge",
		},
	}
}
