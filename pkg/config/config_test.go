package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9090"
  timeout: 45s
database:
  dsn: "file:test.db?mode=rwc"
search:
  max_results: 30
  per_source_limit: 15
  per_source_timeout: 10s
rate_limit:
  interval: 3s
  jitter: 500ms
sources:
  dealstore:
    enabled: true
    cache_ttl: 2h
    feeds:
      - "http://store.example.com/deals.rss"
price_ranges:
  budget: [0, 40]
preferences:
  preferred_size: "m"
  preferred_colors: ["Blue", "Black"]
  price_range: budget
llm:
  endpoint: "http://localhost:11434/v1"
  model: "llama3"
feedback:
  view_record_top: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "file:test.db?mode=rwc", cfg.Database.DSN)
	assert.Equal(t, 30, cfg.Search.MaxResults)
	assert.Equal(t, 15, cfg.Search.PerSourceLimit)
	assert.Equal(t, 10*time.Second, cfg.Search.PerSourceTimeout)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.Jitter)

	require.Contains(t, cfg.Sources, "dealstore")
	assert.Equal(t, 2*time.Hour, cfg.Sources["dealstore"].CacheTTL)
	assert.Equal(t, "Shopscope/1.0", cfg.Sources["dealstore"].UserAgent, "default applied")

	assert.Equal(t, [2]float64{0, 40}, cfg.PriceRanges["budget"])

	require.NotNil(t, cfg.Preferences)
	assert.Equal(t, "M", cfg.Preferences.PreferredSize, "normalized to upper case")
	assert.Equal(t, []string{"blue", "black"}, cfg.Preferences.PreferredColors)
	assert.Contains(t, cfg.Preferences.AcceptableSizes, "M")

	assert.True(t, cfg.RewriterEnabled())
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.001, "default applied")

	assert.Equal(t, 3, cfg.Feedback.ViewRecordTop)
	assert.Equal(t, 30, cfg.Feedback.ProfileWindowDays)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  listen: \":8080\"\n"))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Contains(t, cfg.Database.DSN, "shopscope.db")
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 25, cfg.Search.PerSourceLimit)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.Interval)
	assert.Equal(t, 5, cfg.Feedback.ViewRecordTop)
	assert.Equal(t, 7, cfg.Feedback.TrendingWindowDays)
	assert.False(t, cfg.RewriterEnabled())
	assert.Nil(t, cfg.Preferences)

	// named brackets fall back to the standard set
	assert.Equal(t, [2]float64{0, 50}, cfg.PriceRanges["budget"])
	assert.Equal(t, [2]float64{50, 150}, cfg.PriceRanges["moderate"])
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret-key")
	path := writeConfig(t, `
llm:
  endpoint: "http://localhost:11434/v1"
  model: "llama3"
  api_key: "${TEST_LLM_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.LLM.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "short server timeout",
			yaml:    "server:\n  timeout: 100ms\n",
			wantErr: "server timeout",
		},
		{
			name:    "llm endpoint without model",
			yaml:    "llm:\n  endpoint: \"http://localhost:11434/v1\"\n",
			wantErr: "llm.model is required",
		},
		{
			name:    "enabled source without feeds",
			yaml:    "sources:\n  dealstore:\n    enabled: true\n",
			wantErr: "has no feeds",
		},
		{
			name:    "inverted price range",
			yaml:    "price_ranges:\n  bad: [100, 10]\n",
			wantErr: "invalid bounds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnabledSources(t *testing.T) {
	path := writeConfig(t, `
sources:
  dealstore:
    enabled: true
    feeds: ["http://a/rss"]
  quietstore:
    enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dealstore"}, cfg.EnabledSources())
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)
}
