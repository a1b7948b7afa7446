// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kodexai/regwatch/internal/fetch"
	"github.com/kodexai/regwatch/internal/foedb"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging    LoggingConfig              `mapstructure:"logging"`
	HTTP       HTTPConfig                 `mapstructure:"http"`
	Store      StoreConfig                `mapstructure:"store"`
	PubSub     PubSubConfig               `mapstructure:"pubsub"`
	Batch      BatchConfig                `mapstructure:"batch"`
	Regulators map[string]RegulatorConfig `mapstructure:"regulators"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig configures HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	UserAgent        string `mapstructure:"user_agent"`
}

// StoreConfig identifies the chunked remote store and its scan behavior.
type StoreConfig struct {
	Host          string `mapstructure:"host"`
	Name          string `mapstructure:"name"`
	PinnedVersion string `mapstructure:"pinned_version"`
	Order         string `mapstructure:"order"`
	ScanLimit     int    `mapstructure:"scan_limit"`
}

// PubSubConfig holds metadata for publish-subscribe forwarding.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// BatchConfig governs batch sizing per regulator/content-type.
type BatchConfig struct {
	Limit int `mapstructure:"limit"`
}

// RegulatorConfig overrides a regulator profile and binds its sources.
// Listings and Feeds are keyed by lowercase content type ("news",
// "regulation").
type RegulatorConfig struct {
	BaseURL        string            `mapstructure:"base_url"`
	LanguageMarker string            `mapstructure:"language_marker"`
	Listings       map[string]string `mapstructure:"listings"`
	Feeds          map[string]string `mapstructure:"feeds"`
	UseStore       bool              `mapstructure:"use_store"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REGWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("store.host", "https://www.ecb.europa.eu/foedb/dbs/foedb")
	v.SetDefault("store.name", "publications.en")
	v.SetDefault("store.order", string(foedb.OrderAscending))
	v.SetDefault("store.scan_limit", 5000)
	v.SetDefault("batch.limit", 10)

	v.SetDefault("regulators.ecb.use_store", true)
	v.SetDefault("regulators.ecb.listings.news",
		"https://www.ecb.europa.eu/press/pr/date/html/index.en.html")
	v.SetDefault("regulators.ecb.listings.regulation",
		"https://www.ecb.europa.eu/ecb/legal/framework/html/index.en.html")
	v.SetDefault("regulators.mas.listings.news",
		"https://www.mas.gov.sg/news")
	v.SetDefault("regulators.mas.listings.regulation",
		"https://www.mas.gov.sg/regulation")
	v.SetDefault("regulators.bbk.feeds.news",
		"https://www.bundesbank.de/service/rss/de/633286/feed.rss")
	v.SetDefault("regulators.bbk.listings.regulation",
		"https://www.bundesbank.de/de/presse/stellungnahmen")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.Store.Host == "" || c.Store.Name == "" {
		return fmt.Errorf("store.host and store.name must be set")
	}
	switch foedb.Order(c.Store.Order) {
	case foedb.OrderAscending, foedb.OrderDescending:
	default:
		return fmt.Errorf("store.order must be %q or %q", foedb.OrderAscending, foedb.OrderDescending)
	}
	if c.Store.ScanLimit <= 0 {
		return fmt.Errorf("store.scan_limit must be > 0")
	}
	if c.Batch.Limit <= 0 {
		return fmt.Errorf("batch.limit must be > 0")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// FetchConfig converts the HTTP knobs into the fetch client config.
func (c Config) FetchConfig() fetch.Config {
	return fetch.Config{
		UserAgent:  c.HTTP.UserAgent,
		Timeout:    time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
		MaxRetries: c.HTTP.MaxRetries,
		BaseDelay:  time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond,
		MaxDelay:   time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond,
	}
}

// StoreClientConfig converts the store knobs into the foedb client config.
func (c Config) StoreClientConfig() foedb.Config {
	return foedb.Config{
		Host:          c.Store.Host,
		Store:         c.Store.Name,
		PinnedVersion: c.Store.PinnedVersion,
		Order:         foedb.Order(c.Store.Order),
	}
}
