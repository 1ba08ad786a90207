// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/transition-map/initiative-cli/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Pacing   PacingConfig   `yaml:"pacing" mapstructure:"pacing"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string        `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// OverpassConfig configures the geo source client.
type OverpassConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	PredicatesFile string `yaml:"predicates_file" mapstructure:"predicates_file"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	DedupRadiusM  float64 `yaml:"dedup_radius_m" mapstructure:"dedup_radius_m"`
	AllowNameless bool    `yaml:"allow_nameless" mapstructure:"allow_nameless"`
	// Default bounding box (west, south, east, north) used when the
	// command line does not supply one.
	BBoxWest  float64 `yaml:"bbox_west" mapstructure:"bbox_west"`
	BBoxSouth float64 `yaml:"bbox_south" mapstructure:"bbox_south"`
	BBoxEast  float64 `yaml:"bbox_east" mapstructure:"bbox_east"`
	BBoxNorth float64 `yaml:"bbox_north" mapstructure:"bbox_north"`
}

// EnrichConfig configures the website link extractor.
type EnrichConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	Limit       int    `yaml:"limit" mapstructure:"limit"`
}

// PacingConfig holds the fixed minimum inter-request intervals per source
// class, in milliseconds.
type PacingConfig struct {
	OverpassIntervalMS int `yaml:"overpass_interval_ms" mapstructure:"overpass_interval_ms"`
	WebsiteIntervalMS  int `yaml:"website_interval_ms" mapstructure:"website_interval_ms"`
}

// OverpassInterval returns the geo source interval as a duration.
func (p PacingConfig) OverpassInterval() time.Duration {
	return time.Duration(p.OverpassIntervalMS) * time.Millisecond
}

// WebsiteInterval returns the website scrape interval as a duration.
func (p PacingConfig) WebsiteInterval() time.Duration {
	return time.Duration(p.WebsiteIntervalMS) * time.Millisecond
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INITIATIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "initiatives.db")
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 60)
	v.SetDefault("overpass.user_agent", "initiative-cli/1.0 (+https://github.com/transition-map/initiative-cli)")
	v.SetDefault("ingest.dedup_radius_m", 50)
	v.SetDefault("ingest.allow_nameless", false)
	// Default area: Paris city center, same region the fixtures use.
	v.SetDefault("ingest.bbox_west", 2.25)
	v.SetDefault("ingest.bbox_south", 48.81)
	v.SetDefault("ingest.bbox_east", 2.42)
	v.SetDefault("ingest.bbox_north", 48.90)
	v.SetDefault("enrich.timeout_secs", 5)
	v.SetDefault("enrich.user_agent", "initiative-cli/1.0 (+https://github.com/transition-map/initiative-cli)")
	v.SetDefault("enrich.limit", 100)
	v.SetDefault("pacing.overpass_interval_ms", 2000)
	v.SetDefault("pacing.website_interval_ms", 1000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command depends on are present.
func (c *Config) Validate(section string) error {
	switch section {
	case "store":
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
