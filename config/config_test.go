package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray config.yaml is picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		chdirTemp(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8000" {
			t.Errorf("Server.Port = %s, want 8000", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Ollama.BaseURL != "http://localhost:11434" {
			t.Errorf("Ollama.BaseURL = %s, want http://localhost:11434", cfg.Ollama.BaseURL)
		}
		if cfg.Ollama.ProbeTimeout != 5*time.Second {
			t.Errorf("Ollama.ProbeTimeout = %v, want 5s", cfg.Ollama.ProbeTimeout)
		}
		if cfg.Ollama.PullTimeout != 5*time.Minute {
			t.Errorf("Ollama.PullTimeout = %v, want 5m", cfg.Ollama.PullTimeout)
		}
		if cfg.Generation.Model != "gemma2:2b" {
			t.Errorf("Generation.Model = %s, want gemma2:2b", cfg.Generation.Model)
		}
		if cfg.Generation.Temperature != 0.7 {
			t.Errorf("Generation.Temperature = %v, want 0.7", cfg.Generation.Temperature)
		}
		if cfg.Generation.MaxTokens != 500 {
			t.Errorf("Generation.MaxTokens = %d, want 500", cfg.Generation.MaxTokens)
		}
		if cfg.Generation.Workers != 2 {
			t.Errorf("Generation.Workers = %d, want 2", cfg.Generation.Workers)
		}
		if cfg.Generation.Timeout != 60*time.Second {
			t.Errorf("Generation.Timeout = %v, want 60s", cfg.Generation.Timeout)
		}
		if cfg.Cache.Store != "file" {
			t.Errorf("Cache.Store = %s, want file", cfg.Cache.Store)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Cache.PersistEvery != 10 {
			t.Errorf("Cache.PersistEvery = %d, want 10", cfg.Cache.PersistEvery)
		}
		if cfg.RateLimit.PerIP != 60 {
			t.Errorf("RateLimit.PerIP = %d, want 60", cfg.RateLimit.PerIP)
		}
		assert.True(t, cfg.Generation.UseCache)
		assert.Equal(t, "generate", cfg.Generation.Mode)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "cli", cfg.Log.Format)
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("IACADASTRO_SERVER_PORT", "9090")
		t.Setenv("IACADASTRO_SERVER_ENVIRONMENT", "production")
		t.Setenv("IACADASTRO_OLLAMA_BASE_URL", "http://gpu-box:11434")
		t.Setenv("IACADASTRO_GENERATION_MODEL", "phi3:mini")
		t.Setenv("IACADASTRO_GENERATION_WORKERS", "6")
		t.Setenv("IACADASTRO_GENERATION_MODE", "chat")
		t.Setenv("IACADASTRO_CACHE_STORE", "sqlite")
		t.Setenv("IACADASTRO_CACHE_PATH", "/tmp/cache.db")
		t.Setenv("IACADASTRO_CACHE_TTL", "2h")
		t.Setenv("IACADASTRO_LOG_FORMAT", "json")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "production", cfg.Server.Environment)
		assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.BaseURL)
		assert.Equal(t, "phi3:mini", cfg.Generation.Model)
		assert.Equal(t, 6, cfg.Generation.Workers)
		assert.Equal(t, "chat", cfg.Generation.Mode)
		assert.Equal(t, "sqlite", cfg.Cache.Store)
		assert.Equal(t, "/tmp/cache.db", cfg.Cache.Path)
		assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
		assert.Equal(t, "json", cfg.Log.Format)
	})
}

func TestLoadFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
server:
  port: "7000"
generation:
  model: tinyllama
  temperature: 1.1
cache:
  store: memory
  path: ""
prompts:
  path: /var/lib/iacadastro/prompts.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "tinyllama", cfg.Generation.Model)
	assert.Equal(t, 1.1, cfg.Generation.Temperature)
	assert.Equal(t, "memory", cfg.Cache.Store)
	assert.Equal(t, "/var/lib/iacadastro/prompts.yaml", cfg.Prompts.Path)
	assert.Equal(t, 500, cfg.Generation.MaxTokens, "unset keys keep their defaults")
}

func TestLoadFile_Missing(t *testing.T) {
	chdirTemp(t)

	_, err := LoadFile("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown cache store", "IACADASTRO_CACHE_STORE", "redis"},
		{"zero workers", "IACADASTRO_GENERATION_WORKERS", "0"},
		{"unknown mode", "IACADASTRO_GENERATION_MODE", "stream"},
		{"bad base url", "IACADASTRO_OLLAMA_BASE_URL", "not a url"},
		{"bad log level", "IACADASTRO_LOG_LEVEL", "verbose"},
		{"non numeric port", "IACADASTRO_SERVER_PORT", "http"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_CachePathRequired(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  store: sqlite\n  path: \"\"\n"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "cache path is required")
}
