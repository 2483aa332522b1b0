// Package config loads the concierged daemon configuration from a YAML
// file and CONCIERGE_* environment variables, env taking precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/campushub/concierge"
)

// Config is the full daemon configuration.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Log     Log     `mapstructure:"log"`
	Store   Store   `mapstructure:"store"`
	Redis   Redis   `mapstructure:"redis"`
	Engine  Engine  `mapstructure:"engine"`
	Janitor Janitor `mapstructure:"janitor"`
	Intent  Intent  `mapstructure:"intent"`
	Campus  Campus  `mapstructure:"campus"`
	Audit   Audit   `mapstructure:"audit"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// Store selects and configures the persistence backend.
type Store struct {
	Driver        string `mapstructure:"driver"` // memory, postgres, sqlite, mongo
	PostgresURL   string `mapstructure:"postgres_url"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

// Redis configures the active-instance cache. An empty Addr disables it
// and a per-process in-memory cache is used instead.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Engine tunes the workflow engine.
type Engine struct {
	ExecuteTimeout time.Duration `mapstructure:"execute_timeout"`
	ActiveIndexTTL time.Duration `mapstructure:"active_index_ttl"`
}

// Janitor configures the abandoned-instance sweeper.
type Janitor struct {
	Enabled      bool          `mapstructure:"enabled"`
	AbandonAfter time.Duration `mapstructure:"abandon_after"`
	Schedule     string        `mapstructure:"schedule"`
}

// Intent configures message classification. An empty URL selects the
// built-in keyword classifier.
type Intent struct {
	URL           string  `mapstructure:"url"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// Campus points at the campus services gateway the chains call.
type Campus struct {
	BaseURL string `mapstructure:"base_url"`
}

// Audit toggles the audit-log extension.
type Audit struct {
	Enabled bool `mapstructure:"enabled"`
}

var validDrivers = map[string]bool{
	"memory":   true,
	"postgres": true,
	"sqlite":   true,
	"mongo":    true,
}

// Load reads configuration from the given file path, or from
// concierge.yaml in the working directory when path is empty. A missing
// default file is not an error; env vars alone are enough to run.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CONCIERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("concierge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot start.
func (c *Config) Validate() error {
	if !validDrivers[c.Store.Driver] {
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.Store.Driver {
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("config: store.postgres_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: store.sqlite_path is required for the sqlite driver")
		}
	case "mongo":
		if c.Store.MongoURI == "" {
			return fmt.Errorf("config: store.mongo_uri is required for the mongo driver")
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Intent.MinConfidence < 0 || c.Intent.MinConfidence > 1 {
		return fmt.Errorf("config: intent.min_confidence must be in [0,1]")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := concierge.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.mongo_uri", "")
	v.SetDefault("store.mongo_database", "concierge")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("engine.execute_timeout", defaults.ExecuteTimeout)
	v.SetDefault("engine.active_index_ttl", defaults.ActiveIndexTTL)

	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.abandon_after", defaults.AbandonAfter)
	v.SetDefault("janitor.schedule", defaults.SweepSchedule)

	v.SetDefault("intent.url", "")
	v.SetDefault("intent.min_confidence", 0.6)

	v.SetDefault("campus.base_url", "http://localhost:9090")

	v.SetDefault("audit.enabled", false)
}
