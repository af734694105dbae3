package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"FINSIGHT_PORT", "FINSIGHT_GENERATOR", "FINSIGHT_AI_PROVIDER", "GOOGLE_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{".pdf", ".txt"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, "mock", cfg.Generator.Mode)
	assert.Equal(t, "local", cfg.Staging.Backend)
	assert.Equal(t, 4000, cfg.AI.MaxPromptChars)
	assert.Equal(t, ":8000", cfg.Addr())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  port: 9090
  shutdownTimeout: 10s
upload:
  maxBytes: 1024
  allowedExtensions: [PDF, .md]
generator:
  mode: ai
ai:
  provider: openai
  model: gpt-4o-mini
auth:
  apiKeys:
    acme: secret
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout, "defaults survive a partial file")
	assert.Equal(t, []string{".pdf", ".md"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, "ai", cfg.Generator.Mode)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, map[string]string{"acme": "secret"}, cfg.Auth.APIKeys)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FINSIGHT_PORT", "7000")
	t.Setenv("FINSIGHT_GENERATOR", "ai")
	t.Setenv("FINSIGHT_AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GOOGLE_API_KEY", "g-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "ai", cfg.Generator.Mode)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
}

func TestLoad_GeminiKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "g-test")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "g-test", cfg.AI.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "server: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("FINSIGHT_PORT", "eighty")
	_, err = Load("")
	assert.ErrorContains(t, err, "FINSIGHT_PORT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"max bytes", func(c *Config) { c.Upload.MaxBytes = -1 }, "upload.maxBytes"},
		{"no extractor", func(c *Config) { c.Upload.AllowedExtensions = []string{".docx"} }, "no extractor"},
		{"staging", func(c *Config) { c.Staging.Backend = "ftp" }, "staging.backend"},
		{"minio fields", func(c *Config) { c.Staging.Backend = "minio" }, "staging.minio"},
		{"generator", func(c *Config) { c.Generator.Mode = "crew" }, "generator.mode"},
		{"provider", func(c *Config) { c.AI.Provider = "claude" }, "ai.provider"},
		{"prompt chars", func(c *Config) { c.AI.MaxPromptChars = 0 }, "ai.maxPromptChars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}
