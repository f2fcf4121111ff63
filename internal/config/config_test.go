package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ProviderOllama, cfg.Provider.Name)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 1_000_000, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 0.3, cfg.Similarity.Threshold)
	assert.Equal(t, 5, cfg.Similarity.MaxLinks)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "Knowledge", cfg.Categories.Default)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noteforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  dir: /data/in
output:
  dir: /data/out
provider:
  name: mock
pipeline:
  workers: 8
similarity:
  threshold: 0.5
`), 0o644))

	cfg := NewDefaultConfig()
	require.NoError(t, Load(path, cfg))

	assert.Equal(t, "/data/in", cfg.Input.Dir)
	assert.Equal(t, "/data/out", cfg.Output.Dir)
	assert.Equal(t, ProviderMock, cfg.Provider.Name)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 0.5, cfg.Similarity.Threshold)

	// Untouched values keep their defaults.
	assert.Equal(t, "mistral", cfg.Provider.Model)
	assert.Equal(t, 5, cfg.Similarity.MaxLinks)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("NOTEFORGE_TEST_KEY", "secret-token")

	path := filepath.Join(t.TempDir(), "noteforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  name: openai
  model: gpt-4o-mini
  api_key: ${NOTEFORGE_TEST_KEY}
`), 0o644))

	cfg := NewDefaultConfig()
	require.NoError(t, Load(path, cfg))
	assert.Equal(t, "secret-token", cfg.Provider.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), cfg)
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: [not a map"), 0o644))
	_, err = LoadOrDefault(path)
	assert.Error(t, err, "a present but broken file must not be ignored")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider.Name = "gemini" }},
		{"openai without api key", func(c *Config) { c.Provider.Name = ProviderOpenAI }},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"tiny chunk size", func(c *Config) { c.Pipeline.ChunkSize = 100 }},
		{"threshold above one", func(c *Config) { c.Similarity.Threshold = 1.5 }},
		{"zero max links", func(c *Config) { c.Similarity.MaxLinks = 0 }},
		{"empty input dir", func(c *Config) { c.Input.Dir = "" }},
		{"retry multiplier below one", func(c *Config) { c.Retry.Multiplier = 0.5 }},
		{"default category not allowed", func(c *Config) { c.Categories.Default = "Mystery" }},
		{"empty category allowlist", func(c *Config) { c.Categories.Allowed = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCacheConfigSkipsValidationWhenDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Cache.MemoryEntries = -10
	assert.NoError(t, cfg.Validate())
}
