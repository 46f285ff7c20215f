package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. OMOK_SERVER_PORT
const EnvPrefix = "OMOK"

// Config is the server's full configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the backends. Games live in memory or redis; profiles
// additionally may live in sqlite or postgres.
type StorageConfig struct {
	Games    string `mapstructure:"games"`
	Profiles string `mapstructure:"profiles"`
}

// RedisConfig holds the shared store connection
type RedisConfig struct {
	URL             string        `mapstructure:"url"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	GameTTL         time.Duration `mapstructure:"game_ttl"`
	BindingTTL      time.Duration `mapstructure:"binding_ttl"`
	GuestProfileTTL time.Duration `mapstructure:"guest_profile_ttl"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

// DatabaseConfig holds the SQL profile store connection
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AuthConfig holds session settings
type AuthConfig struct {
	SessionDuration time.Duration `mapstructure:"session_duration"`
	StartingPoints  int           `mapstructure:"starting_points"`
}

// LogConfig holds logger settings. An empty File logs to stdout only.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Valid backend names
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Load reads configuration from an optional YAML file and OMOK_* environment
// variables on top of the defaults. An empty path looks for omok.yaml in the
// working directory and ./config, and carries on without one.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("omok")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the backend selections
func (c *Config) Validate() error {
	switch c.Storage.Games {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("storage.games must be memory or redis, got %q", c.Storage.Games)
	}
	switch c.Storage.Profiles {
	case "", BackendMemory, BackendRedis, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("storage.profiles must be memory, redis, sqlite or postgres, got %q", c.Storage.Profiles)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// setDefaults registers every key so environment overrides apply even
// without a config file
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("storage.games", BackendMemory)
	v.SetDefault("storage.profiles", "")

	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.game_ttl", "24h")
	v.SetDefault("redis.binding_ttl", "24h")
	v.SetDefault("redis.guest_profile_ttl", "24h")
	v.SetDefault("redis.lock_ttl", "10s")

	v.SetDefault("database.driver", BackendSQLite)
	v.SetDefault("database.dsn", "omok.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")

	v.SetDefault("auth.session_duration", "24h")
	v.SetDefault("auth.starting_points", 1500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.compress", true)
}
