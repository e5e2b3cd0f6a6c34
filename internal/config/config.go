// Package config defines all configuration for the feature pipeline engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// operationally sensitive fields overridable via FEATUREGRAPH_* environment
// variables, following the teacher's viper-based loader pattern.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Store       StoreConfig       `mapstructure:"store"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	Feed        FeedConfig        `mapstructure:"feed"`
}

// PipelineConfig names the graph of features to build and evaluate.
type PipelineConfig struct {
	Name          string          `mapstructure:"name"`
	FrequencySecs int             `mapstructure:"frequency_secs"`
	Features      []FeatureConfig `mapstructure:"features"`
}

// InputRef points a feature's input at either a base identifier (From
// empty) or another feature's output (From set to that feature's id).
type InputRef struct {
	From      string `mapstructure:"from"`
	FeatureId string `mapstructure:"feature_id"`
	Periods   int    `mapstructure:"periods"`
}

// FeatureConfig is a tagged union over the built-in feature kinds. Only the
// fields relevant to Kind are populated; catalog.FromConfig validates the
// combination and returns an error on mismatch, which engine.New reports
// as a ConfigError.
type FeatureConfig struct {
	Kind       string   `mapstructure:"kind"`
	Id         string   `mapstructure:"id"`
	Output     string   `mapstructure:"output"`
	Input      InputRef `mapstructure:"input"`
	PriceInput InputRef `mapstructure:"price_input"`
	QtyInput   InputRef `mapstructure:"qty_input"`
	WindowSecs int      `mapstructure:"window_secs"`
	Front      string   `mapstructure:"front"`
	Back       string   `mapstructure:"back"`
}

// StoreConfig bounds how long the State Store retains raw ticks/trades.
// Zero means unbounded retention (the Open-Question default).
type StoreConfig struct {
	TickRetention  time.Duration `mapstructure:"tick_retention"`
	TradeRetention time.Duration `mapstructure:"trade_retention"`
}

// DiagnosticsConfig tunes the observational failure monitor.
type DiagnosticsConfig struct {
	FailureWindow  time.Duration `mapstructure:"failure_window"`
	AlertThreshold float64       `mapstructure:"alert_threshold"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the diagnostics/metrics HTTP+WS server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// FeedConfig controls the demo market-data ingestion collaborator.
type FeedConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	RestBaseURL  string        `mapstructure:"rest_base_url"`
	WSURL        string        `mapstructure:"ws_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Load reads config from a YAML file with env var overrides.
// Operationally sensitive fields use env vars: FEATUREGRAPH_FEED_REST_BASE_URL,
// FEATUREGRAPH_FEED_WS_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FEATUREGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("FEATUREGRAPH_FEED_REST_BASE_URL"); url != "" {
		cfg.Feed.RestBaseURL = url
	}
	if url := os.Getenv("FEATUREGRAPH_FEED_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges. Failures here are
// plain errors in the construction-time (config) category of the error
// taxonomy: the process refuses to start rather than run with an
// ambiguous pipeline definition.
func (c *Config) Validate() error {
	if c.Pipeline.Name == "" {
		return fmt.Errorf("pipeline.name is required")
	}
	// An empty features list is valid: it builds a Pipeline with no nodes,
	// whose Calculate is a no-op — spec.md §8 scenario 1 exercises this
	// directly, so the entrypoint must not reject it here.
	seen := make(map[string]bool, len(c.Pipeline.Features))
	for _, f := range c.Pipeline.Features {
		if f.Id == "" {
			return fmt.Errorf("pipeline.features: every feature needs an id")
		}
		if seen[f.Id] {
			return fmt.Errorf("pipeline.features: duplicate feature id %q", f.Id)
		}
		seen[f.Id] = true
		switch f.Kind {
		case "sma", "ema", "vwap", "volume", "spread":
		default:
			return fmt.Errorf("pipeline.features[%s]: unknown kind %q", f.Id, f.Kind)
		}
	}
	if c.Diagnostics.AlertThreshold < 0 || c.Diagnostics.AlertThreshold > 1 {
		return fmt.Errorf("diagnostics.alert_threshold must be in [0,1]")
	}
	if c.Dashboard.Enabled && c.Dashboard.Port <= 0 {
		return fmt.Errorf("dashboard.port must be > 0 when dashboard.enabled")
	}
	if c.Feed.Enabled && c.Feed.RestBaseURL == "" && c.Feed.WSURL == "" {
		return fmt.Errorf("feed.rest_base_url or feed.ws_url is required when feed.enabled")
	}
	return nil
}
