package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shopscope/shopscope/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:shopscope.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Search struct {
		MaxResults       int           `yaml:"max_results" json:"max_results" jsonschema:"default=50,description=Maximum items returned per search"`
		PerSourceLimit   int           `yaml:"per_source_limit" json:"per_source_limit" jsonschema:"default=25,description=Maximum items requested from each source"`
		PerSourceTimeout time.Duration `yaml:"per_source_timeout" json:"per_source_timeout" jsonschema:"default=30s,description=Timeout for a single source query"`
	} `yaml:"search" json:"search" jsonschema:"description=Search configuration"`

	RateLimit struct {
		Interval time.Duration `yaml:"interval" json:"interval" jsonschema:"default=2s,description=Minimum interval between requests to the same source"`
		Jitter   time.Duration `yaml:"jitter" json:"jitter" jsonschema:"default=1s,description=Random extra delay added to each request"`
	} `yaml:"rate_limit" json:"rate_limit" jsonschema:"description=Per-source rate limiting"`

	Sources map[string]SourceConfig `yaml:"sources" json:"sources" jsonschema:"description=External source adapters keyed by source name"`

	PriceRanges domain.PriceRanges `yaml:"price_ranges" json:"price_ranges" jsonschema:"description=Named price brackets as [min max] pairs"`

	Preferences *domain.UserPreferences `yaml:"preferences" json:"preferences,omitempty" jsonschema:"description=Declared shopping preferences applied to every search"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=Optional LLM query rewriting"`

	Feedback FeedbackConfig `yaml:"feedback" json:"feedback" jsonschema:"description=Feedback learning configuration"`
}

// SourceConfig describes one external source adapter
type SourceConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Whether the source participates in searches"`
	CacheTTL  time.Duration `yaml:"cache_ttl" json:"cache_ttl" jsonschema:"default=1h,description=How long cached results stay valid"`
	Feeds     []string      `yaml:"feeds" json:"feeds" jsonschema:"description=Product feed URLs for feed-backed sources"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Shopscope/1.0,description=User agent for outbound requests"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=20s,description=HTTP timeout for source requests"`
}

// LLMConfig holds LLM configuration for query rewriting. The rewriter is
// wired only when an endpoint is set.
type LLMConfig struct {
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"description=Model name (e.g. gpt-4o-mini or llama3)"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=500,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt for the LLM (optional)"`
	UseJSONMode  bool          `yaml:"use_json_mode" json:"use_json_mode" jsonschema:"default=false,description=Use JSON response format (not all models support this)"`
}

// FeedbackConfig holds feedback learning settings
type FeedbackConfig struct {
	ViewRecordTop      int `yaml:"view_record_top" json:"view_record_top" jsonschema:"default=5,description=Number of top results to record as viewed"`
	ProfileWindowDays  int `yaml:"profile_window_days" json:"profile_window_days" jsonschema:"default=30,description=Days of feedback history used for preference profiles"`
	TrendingWindowDays int `yaml:"trending_window_days" json:"trending_window_days" jsonschema:"default=7,description=Days of feedback history used for trending"`
	TrendingLimit      int `yaml:"trending_limit" json:"trending_limit" jsonschema:"default=20,description=Maximum trending entries returned"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:shopscope.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for search
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 50
	}
	if cfg.Search.PerSourceLimit == 0 {
		cfg.Search.PerSourceLimit = 25
	}
	if cfg.Search.PerSourceTimeout == 0 {
		cfg.Search.PerSourceTimeout = 30 * time.Second
	}

	// set defaults for rate limiting
	if cfg.RateLimit.Interval == 0 {
		cfg.RateLimit.Interval = 2 * time.Second
	}
	if cfg.RateLimit.Jitter == 0 {
		cfg.RateLimit.Jitter = time.Second
	}

	// per-source defaults
	for name, src := range cfg.Sources {
		if src.CacheTTL == 0 {
			src.CacheTTL = time.Hour
		}
		if src.UserAgent == "" {
			src.UserAgent = "Shopscope/1.0"
		}
		if src.Timeout == 0 {
			src.Timeout = 20 * time.Second
		}
		cfg.Sources[name] = src
	}

	// named brackets fall back to the standard set
	if len(cfg.PriceRanges) == 0 {
		cfg.PriceRanges = domain.DefaultPriceRanges()
	}

	if cfg.Preferences != nil {
		cfg.Preferences.Normalize()
	}

	// set defaults for LLM
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 500
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}

	// set defaults for feedback
	if cfg.Feedback.ViewRecordTop == 0 {
		cfg.Feedback.ViewRecordTop = 5
	}
	if cfg.Feedback.ProfileWindowDays == 0 {
		cfg.Feedback.ProfileWindowDays = 30
	}
	if cfg.Feedback.TrendingWindowDays == 0 {
		cfg.Feedback.TrendingWindowDays = 7
	}
	if cfg.Feedback.TrendingLimit == 0 {
		cfg.Feedback.TrendingLimit = 20
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	// validate search config
	if cfg.Search.MaxResults < 1 {
		return fmt.Errorf("search.max_results must be at least 1")
	}
	if cfg.Search.PerSourceLimit < 1 {
		return fmt.Errorf("search.per_source_limit must be at least 1")
	}

	// validate sources
	for name, src := range cfg.Sources {
		if src.Enabled && len(src.Feeds) == 0 {
			return fmt.Errorf("source %s is enabled but has no feeds", name)
		}
	}

	// validate price ranges
	for name, bounds := range cfg.PriceRanges {
		if bounds[0] < 0 || bounds[1] < bounds[0] {
			return fmt.Errorf("price range %s has invalid bounds [%v, %v]", name, bounds[0], bounds[1])
		}
	}

	// validate LLM config only when the rewriter is enabled
	if cfg.LLM.Endpoint != "" {
		if cfg.LLM.Model == "" {
			return fmt.Errorf("llm.model is required when llm.endpoint is set")
		}
		if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
			return fmt.Errorf("llm.temperature must be between 0 and 2")
		}
	}

	return nil
}

// RewriterEnabled reports whether the LLM query rewriter should be wired
func (c *Config) RewriterEnabled() bool {
	return c.LLM.Endpoint != ""
}

// EnabledSources returns the names of sources that participate in searches
func (c *Config) EnabledSources() []string {
	var names []string
	for name, src := range c.Sources {
		if src.Enabled {
			names = append(names, name)
		}
	}
	return names
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() LLMConfig {
	return c.LLM
}
