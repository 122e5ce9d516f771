package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultSymbols is the fixed set ingested when SYMBOLS is not configured.
var defaultSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA"}

// allowedIntervals lists the request intervals the API accepts.
var allowedIntervals = []string{"1min", "5min", "15min", "30min", "60min", "daily"}

// Config holds all configuration for one ingestion run.
type Config struct {
	// APIKey authenticates against the market-data API. Required.
	APIKey string `mapstructure:"api_key"`

	// DBConnection is the postgres DSN. Required.
	DBConnection string `mapstructure:"db_connection"`

	// Symbols is the list of tickers to ingest.
	Symbols []string `mapstructure:"symbols"`

	// Interval is the requested series granularity (intraday step or daily).
	Interval string `mapstructure:"interval"`

	// BaseURL points at the market-data API (overridable for testing).
	BaseURL string `mapstructure:"alphavantage_base_url"`

	// HTTPTimeoutSeconds bounds each outbound fetch.
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds"`

	// RunTimeoutSeconds bounds the entire run.
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds"`

	// Workers sets the fetch concurrency; 1 means sequential.
	Workers int `mapstructure:"workers"`

	// RateLimitPerMinute caps outbound requests per minute.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// HTTPTimeout returns the per-request ceiling as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// RunTimeout returns the whole-run deadline as a duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over config file values.
//
// Expected environment variables:
//   - API_KEY (required)
//   - DB_CONNECTION (required)
//   - SYMBOLS (comma-separated, optional)
//   - INTERVAL (optional, defaults to 60min)
//   - ALPHAVANTAGE_BASE_URL (optional, defaults to production)
//   - HTTP_TIMEOUT_SECONDS, RUN_TIMEOUT_SECONDS, WORKERS,
//     RATE_LIMIT_PER_MINUTE (optional)
func Load() (*Config, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.SetDefault("interval", "60min")
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("run_timeout_seconds", 120)
	v.SetDefault("workers", 1)
	v.SetDefault("rate_limit_per_minute", 5)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.stockingest")
	_ = v.ReadInConfig()

	v.BindEnv("api_key", "API_KEY")
	v.BindEnv("db_connection", "DB_CONNECTION")
	v.BindEnv("symbols", "SYMBOLS")
	v.BindEnv("interval", "INTERVAL")
	v.BindEnv("alphavantage_base_url", "ALPHAVANTAGE_BASE_URL")
	v.BindEnv("http_timeout_seconds", "HTTP_TIMEOUT_SECONDS")
	v.BindEnv("run_timeout_seconds", "RUN_TIMEOUT_SECONDS")
	v.BindEnv("workers", "WORKERS")
	v.BindEnv("rate_limit_per_minute", "RATE_LIMIT_PER_MINUTE")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// SYMBOLS arrives comma-separated from the environment; a config file
	// may already provide a list. Either way, trim and uppercase.
	config.Symbols = normalizeSymbols(config.Symbols)
	if len(config.Symbols) == 0 {
		config.Symbols = defaultSymbols
	}

	var missing []string
	if config.APIKey == "" {
		missing = append(missing, "API_KEY")
	}
	if config.DBConnection == "" {
		missing = append(missing, "DB_CONNECTION")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if !intervalAllowed(config.Interval) {
		return nil, fmt.Errorf("invalid INTERVAL %q, allowed: %s",
			config.Interval, strings.Join(allowedIntervals, ", "))
	}

	return config, nil
}

func normalizeSymbols(in []string) []string {
	symbols := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			p = strings.ToUpper(strings.TrimSpace(p))
			if p != "" {
				symbols = append(symbols, p)
			}
		}
	}
	return symbols
}

func intervalAllowed(interval string) bool {
	for _, a := range allowedIntervals {
		if interval == a {
			return true
		}
	}
	return false
}
