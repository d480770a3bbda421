package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "http://localhost:8000", cfg.Sandbox.ExpectedOrigin)
	assert.Equal(t, 5*time.Second, cfg.Sandbox.ExecTimeout)
	assert.False(t, cfg.Sandbox.Headless)

	assert.Equal(t, "jsdelivr", cfg.Resolver.PrimaryCDN)
	assert.False(t, cfg.Resolver.RegistryLookups)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 20, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("SANDBOX_ORIGIN", "https://play.example.dev")
	t.Setenv("RESOLVER_CDN", "unpkg")
	t.Setenv("SANDBOX_EXEC_TIMEOUT", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.Server.Port)
	assert.Equal(t, "https://play.example.dev", cfg.Sandbox.ExpectedOrigin)
	assert.Equal(t, "unpkg", cfg.Resolver.PrimaryCDN)
	assert.Equal(t, 10*time.Second, cfg.Sandbox.ExecTimeout)
}

func TestAllowedOriginsList(t *testing.T) {
	t.Setenv("SANDBOX_ALLOWED_ORIGINS", "http://localhost:8000,https://*.example.dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:8000", "https://*.example.dev"}, cfg.Sandbox.AllowedOrigins)
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9100"
resolver:
  primary_cdn: esm.sh
  registry_lookups: true
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "esm.sh", cfg.Resolver.PrimaryCDN)
	assert.True(t, cfg.Resolver.RegistryLookups)
	// untouched sections keep their defaults
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = "9200"

[rate_limit]
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9200", cfg.Server.Port)
}

func TestLoadFileUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
