package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/senoxone/qbshop/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Markup   MarkupConfig   `mapstructure:"markup"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RefreshConfig governs crawl cadence and politeness.
type RefreshConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	PageDelay    time.Duration `mapstructure:"page_delay"`
	DetailDelay  time.Duration `mapstructure:"detail_delay"`
}

// CatalogConfig names the crawl targets.
type CatalogConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	CatalogURL  string `mapstructure:"catalog_url"`
	TitlePrefix string `mapstructure:"title_prefix"`
}

// FetchConfig tunes the HTTP client.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
	UserAgent string        `mapstructure:"user_agent"`
}

// MarkupConfig locates the resale markup rules document.
type MarkupConfig struct {
	Path string `mapstructure:"path"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QBSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "qbshop")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("refresh.interval", "1h")
	v.SetDefault("refresh.startup_delay", "0s")
	v.SetDefault("refresh.page_delay", "1200ms")
	v.SetDefault("refresh.detail_delay", "800ms")

	v.SetDefault("catalog.base_url", "https://syomastore.ru")
	v.SetDefault("catalog.catalog_url", "https://syomastore.ru/catalog/iphone")
	v.SetDefault("catalog.title_prefix", "iPhone")

	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.retries", 4)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	v.SetDefault("markup.path", "markup.json")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be greater than zero")
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url must be configured")
	}
	if c.Catalog.CatalogURL == "" {
		return fmt.Errorf("catalog.catalog_url must be configured")
	}
	if c.Catalog.TitlePrefix == "" {
		return fmt.Errorf("catalog.title_prefix must be configured")
	}
	if c.Fetch.Retries < 1 {
		return fmt.Errorf("fetch.retries must be at least one")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
