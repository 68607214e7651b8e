package config

import (
	"keyword-go/pkg/cache"
	"keyword-go/pkg/enrich"
	"keyword-go/pkg/trends"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Trends   trends.Config  `mapstructure:"trends"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Enrich   enrich.Config  `mapstructure:"enrich"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type CacheConfig struct {
	MaxEntries int             `mapstructure:"max_entries"`
	TTL        cache.TTLPolicy `mapstructure:"ttl"`
}

type SourcesConfig struct {
	SeedVariants int `mapstructure:"seed_variants"`
}

// PostgresConfig holds the persistence DSN. An empty DSN selects the
// in-memory store; enrichment still runs and returns computed scores.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
