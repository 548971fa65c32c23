package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RishiKendai/textguard/internal/plagiarism"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("MONGO_DB_NAME", "textguard_test")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:6379", cfg.RedisHost)
	assert.Equal(t, 24*time.Hour, cfg.StreamRetentionDuration)
	assert.Equal(t, 30*time.Minute, cfg.ComputationTimeout)
	assert.Equal(t, 5, cfg.MaxConcurrentCompute)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "2112", cfg.MetricsPort)
	assert.Equal(t, plagiarism.DefaultOptions(), cfg.Engine)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STREAM_RETENTION_DURATION", "6")
	t.Setenv("COMPUTATION_TIMEOUT_MINUTES", "90s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("MAX_CONCURRENT_COMPUTE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6*time.Hour, cfg.StreamRetentionDuration)
	assert.Equal(t, 90*time.Second, cfg.ComputationTimeout)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.MaxConcurrentCompute)
}

func TestLoadLogPretty(t *testing.T) {
	tests := []struct {
		name   string
		pretty string
		want   string
	}{
		{"unset", "", "json"},
		{"enabled", "true", "console"},
		{"disabled", "0", "json"},
		{"invalid falls back", "sometimes", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("LOG_FORMAT", "json")
			t.Setenv("LOG_PRETTY", tt.pretty)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.LogFormat)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing mongo uri", func(c *Config) { c.MongoURI = "" }},
		{"short encryption key", func(c *Config) { c.EncryptionKey = "too-short" }},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentCompute = 0 }},
		{"zero upload limit", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"bad engine options", func(c *Config) { c.Engine.MinNGram = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEngineOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
min_ngram: 2
max_ngram: 6
substring_window: 40
thresholds:
  high: 90
`), 0o600))

	opts, err := LoadEngineOptions(path)
	require.NoError(t, err)

	assert.Equal(t, 2, opts.MinNGram)
	assert.Equal(t, 6, opts.MaxNGram)
	assert.Equal(t, 40, opts.SubstringWindow)
	assert.Equal(t, 5, opts.MinSubstring)
	assert.Equal(t, 0.7, opts.LineWeight)
	assert.Equal(t, 50.0, opts.Thresholds.Medium)
	assert.Equal(t, 90.0, opts.Thresholds.High)
}

func TestLoadEngineOptionsRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("min_ngram: 9\nmax_ngram: 4\n"), 0o600))
	_, err := LoadEngineOptions(invalid)
	assert.Error(t, err)

	_, err = LoadEngineOptions(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("ENGINE_CONFIG_FILE", invalid)
	_, err = Load()
	assert.Error(t, err)
}
