// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig         `mapstructure:"logging"`
	Catalog   CatalogConfig         `mapstructure:"catalog"`
	Crawl     CrawlConfig           `mapstructure:"crawl"`
	Store     StoreConfig           `mapstructure:"store"`
	Metrics   MetricsConfig         `mapstructure:"metrics"`
	Snapshots SnapshotConfig        `mapstructure:"snapshots"`
	Sites     map[string]SiteConfig `mapstructure:"sites"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// CatalogConfig points at the canonical theme catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// CrawlConfig governs the sweep every site task performs.
type CrawlConfig struct {
	// Days is the length of the rolling date window, starting today.
	Days      int    `mapstructure:"days"`
	UserAgent string `mapstructure:"user_agent"`
}

// StoreConfig controls the availability store backend.
type StoreConfig struct {
	// Driver selects "postgres" or "memory".
	Driver   string        `mapstructure:"driver"`
	DSN      string        `mapstructure:"dsn"`
	Table    string        `mapstructure:"table"`
	TTL      time.Duration `mapstructure:"ttl"`
	MaxConns int32         `mapstructure:"max_conns"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SnapshotConfig controls debug DOM snapshots written on unit failures.
type SnapshotConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// SiteConfig holds everything one site adapter needs: endpoints, selectors,
// script templates, and the empirically tuned knobs that differ per site.
type SiteConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Family is "browser" or "document".
	Family  string `mapstructure:"family"`
	BaseURL string `mapstructure:"base_url"`

	// SimilarityThreshold overrides the resolver acceptance threshold for
	// this site's labels. Zero means the global default.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// WaitTimeout bounds every explicit wait for page content.
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
	// SettleDelay is the fixed pause after a script-driven partial update,
	// for which no load event fires.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	// RatePerSecond paces document-family requests. Zero disables pacing.
	RatePerSecond float64 `mapstructure:"rate_per_second"`

	Selectors map[string]string `mapstructure:"selectors"`
	Scripts   map[string]string `mapstructure:"scripts"`
	Branches  []BranchConfig    `mapstructure:"branches"`
}

// BranchConfig names one physical location of a site's brand.
type BranchConfig struct {
	Key  string `mapstructure:"key"`
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// Families a SiteConfig may declare.
const (
	FamilyBrowser  = "browser"
	FamilyDocument = "document"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRD")
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
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("catalog.path", "catalog.json")
	v.SetDefault("crawl.days", 7)
	v.SetDefault("crawl.user_agent",
		"scrd-crawler/1.0 (+https://github.com/scrd/availability-crawler)")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.table", "availability")
	v.SetDefault("store.ttl", "24h")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9109")
	v.SetDefault("snapshots.enabled", false)
	v.SetDefault("snapshots.dir", "data/snapshots")
	v.SetDefault("snapshots.max_bytes", 5*1024*1024)
}

// Validate checks cross-field constraints that mapstructure cannot express.
func (c Config) Validate() error {
	if c.Crawl.Days <= 0 {
		return fmt.Errorf("crawl.days must be positive, got %d", c.Crawl.Days)
	}
	if c.Store.Driver != "memory" && c.Store.Driver != "postgres" {
		return fmt.Errorf("store.driver must be memory or postgres, got %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for the postgres driver")
	}
	if c.Store.TTL <= 0 {
		return fmt.Errorf("store.ttl must be positive")
	}
	for id, site := range c.Sites {
		if !site.Enabled {
			continue
		}
		if site.Family != FamilyBrowser && site.Family != FamilyDocument {
			return fmt.Errorf("sites.%s.family must be browser or document, got %q", id, site.Family)
		}
		if site.BaseURL == "" {
			return fmt.Errorf("sites.%s.base_url is required", id)
		}
		if site.SimilarityThreshold < 0 || site.SimilarityThreshold > 1 {
			return fmt.Errorf("sites.%s.similarity_threshold must be within [0,1]", id)
		}
	}
	return nil
}

// SiteWaitTimeout returns the explicit-wait bound for a site, defaulted.
func (s SiteConfig) SiteWaitTimeout() time.Duration {
	if s.WaitTimeout > 0 {
		return s.WaitTimeout
	}
	return 10 * time.Second
}
