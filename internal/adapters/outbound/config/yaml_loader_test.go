package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getsentry/cli-sub002/internal/adapters/outbound/config"
	"github.com/getsentry/cli-sub002/internal/domain"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sentry-detect.yaml"), []byte(content), 0o644))
}

func TestLoad_MissingFileIsZeroConfig(t *testing.T) {
	cfg, err := config.New().Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.ProjectConfig{}, cfg)
}

func TestLoad_ParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
dsn: https://abcd@o1.ingest.us.sentry.io/2
url: https://sentry.example.com:9000
max_depth: 6
max_file_size: 2048
cache_ttl: 12h
ignore:
  - generated
  - fixtures
`)

	cfg, err := config.New().Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://abcd@o1.ingest.us.sentry.io/2", cfg.DSN)
	assert.Equal(t, "https://sentry.example.com:9000", cfg.URL)
	assert.Equal(t, 6, cfg.MaxDepth)
	assert.Equal(t, int64(2048), cfg.MaxFileSize)
	assert.Equal(t, []string{"generated", "fixtures"}, cfg.Ignore)
}

func TestLoad_RejectsInvalidTTL(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cache_ttl: soon\n")

	_, err := config.New().Load(dir)
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedDSN(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "dsn: not-a-dsn\n")

	_, err := config.New().Load(dir)
	assert.Error(t, err)
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "dsn: [unclosed\n")

	_, err := config.New().Load(dir)
	assert.Error(t, err)
}

func TestApply_OverlaysExplicitValues(t *testing.T) {
	cfg := config.ProjectConfig{
		DSN:      "https://abcd@o1.ingest.us.sentry.io/2",
		URL:      "https://sentry.example.com",
		MaxDepth: 7,
		CacheTTL: "1h",
		Ignore:   []string{"generated"},
	}

	opts := cfg.Apply(domain.Options{MaxDepth: 4, CacheTTL: 24 * time.Hour})
	assert.Equal(t, "https://abcd@o1.ingest.us.sentry.io/2", opts.ConfigDSN)
	assert.Equal(t, "sentry.example.com", opts.SelfHostedHost)
	assert.Equal(t, 7, opts.MaxDepth)
	assert.Equal(t, time.Hour, opts.CacheTTL)
	assert.Contains(t, opts.ExtraIgnoreDirs, "generated")
}

func TestApply_ZeroConfigKeepsDefaults(t *testing.T) {
	base := domain.Options{MaxDepth: 4, MaxFileSize: 1 << 20, CacheTTL: 24 * time.Hour}
	opts := config.ProjectConfig{}.Apply(base)
	assert.Equal(t, base, opts)
}
