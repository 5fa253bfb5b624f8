package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	Tagger    TaggerConfig    `mapstructure:"tagger"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	VenueSync string `mapstructure:"venue_sync"`
}

// PipelineConfig tunes the ETL stages. FuzzyThreshold is the minimum
// title-similarity ratio for a near-duplicate match; TimeTolerance of
// zero means two start times match when they fall on the same UTC
// calendar day.
type PipelineConfig struct {
	FuzzyThreshold float64       `mapstructure:"fuzzy_threshold"`
	TimeTolerance  time.Duration `mapstructure:"time_tolerance"`
	HistoryDays    int           `mapstructure:"history_days"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	EnrichWorkers  int           `mapstructure:"enrich_workers"`
	EnrichTimeout  time.Duration `mapstructure:"enrich_timeout"`
}

type ScrapeConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	SyncOnStart bool          `mapstructure:"sync_on_start"`
}

type GeocodeConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type TaggerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	MaxTags int  `mapstructure:"max_tags"`
}

type EmbeddingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	MaxChars int    `mapstructure:"max_chars"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.venue_sync", "0 0 */6 * * *")
	v.SetDefault("pipeline.fuzzy_threshold", 0.85)
	v.SetDefault("pipeline.time_tolerance", "0s")
	v.SetDefault("pipeline.history_days", 90)
	v.SetDefault("pipeline.history_limit", 500)
	v.SetDefault("pipeline.enrich_workers", 8)
	v.SetDefault("pipeline.enrich_timeout", "10s")
	v.SetDefault("scrape.timeout", "30s")
	v.SetDefault("scrape.user_agent", "cityvibe-etl/1.0")
	v.SetDefault("scrape.sync_on_start", false)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "cityvibe-etl/1.0")
	v.SetDefault("geocode.timeout", "10s")
	v.SetDefault("tagger.enabled", true)
	v.SetDefault("tagger.max_tags", 5)
	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.max_chars", 8000)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
