package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse-hq/newspulse/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "data/newspulse.db", cfg.Store.Path)
	assert.Equal(t, 6, cfg.Relay.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Scrape.Enabled)

	feeds := cfg.CategoryFeeds()
	assert.Len(t, feeds, 7)
	assert.NotEmpty(t, feeds[domain.CategoryTop])
	assert.NotEmpty(t, feeds[domain.CategorySports])
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9090"
relay:
  timeout_seconds: 3
feeds:
  top:
    - https://feeds.example.com/top.rss
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 3, cfg.Relay.TimeoutSeconds)
	// Unset keys keep their defaults.
	assert.Equal(t, "data/newspulse.db", cfg.Store.Path)

	feeds := cfg.CategoryFeeds()
	assert.Equal(t, []string{"https://feeds.example.com/top.rss"}, feeds[domain.CategoryTop])
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NEWSPULSE_SERVER_ADDRESS", ":7070")
	t.Setenv("NEWSPULSE_REMOTE_BASE_URL", "https://cache.example.com")
	t.Setenv("NEWSPULSE_REMOTE_API_KEY", "env-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "https://cache.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "env-key", cfg.Remote.APIKey)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCategoryFeedsNormalizesKeys(t *testing.T) {
	t.Parallel()

	cfg := Config{Feeds: map[string][]string{
		" Top ":  {"https://a.example/rss"},
		"SPORTS": {"https://b.example/rss"},
	}}

	feeds := cfg.CategoryFeeds()
	assert.Equal(t, []string{"https://a.example/rss"}, feeds[domain.CategoryTop])
	assert.Equal(t, []string{"https://b.example/rss"}, feeds[domain.CategorySports])
}
