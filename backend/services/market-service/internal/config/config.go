package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "gridmarket/backend/libs/config"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config defines market-service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Feed     FeedConfig     `yaml:"feed"`
}

// HTTPConfig is the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"MARKET_HTTP_PORT"`
}

// StorageConfig selects the Ledger Store backend.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"MARKET_STORAGE_DRIVER"`
}

// DatabaseConfig is used by the postgres driver.
type DatabaseConfig struct {
	DSN          string        `yaml:"dsn" env:"MARKET_POSTGRES_DSN"`
	Migrate      bool          `yaml:"migrate" env:"MARKET_POSTGRES_MIGRATE"`
	MaxOpenConns int           `yaml:"maxOpenConns" env:"MARKET_POSTGRES_MAX_OPEN_CONNS"`
	ConnLifetime time.Duration `yaml:"connLifetime" env:"MARKET_POSTGRES_CONN_LIFETIME"`
}

// RedisConfig is used by the redis driver.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"MARKET_REDIS_ADDR"`
	Password string `yaml:"password" env:"MARKET_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"MARKET_REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"MARKET_REDIS_PREFIX"`
}

// FeedConfig tunes the websocket ledger feed.
type FeedConfig struct {
	Enabled             bool `yaml:"enabled" env:"MARKET_FEED_ENABLED"`
	WriteTimeoutSeconds int  `yaml:"writeTimeoutSeconds" env:"MARKET_FEED_WRITE_TIMEOUT"`
	PingIntervalSeconds int  `yaml:"pingIntervalSeconds" env:"MARKET_FEED_PING_INTERVAL"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{Port: "8085"},
		Storage:  StorageConfig{Driver: DriverMemory},
		Database: DatabaseConfig{Migrate: true},
		Redis:    RedisConfig{Prefix: "market"},
		Feed: FeedConfig{
			Enabled:             true,
			WriteTimeoutSeconds: 10,
			PingIntervalSeconds: 30,
		},
	}
}

// Load configuration from file/env.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver-specific requirements.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "", DriverMemory:
		c.Storage.Driver = DriverMemory
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("config: database dsn required for postgres storage")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("config: redis addr required for redis storage")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// HTTPAddress returns :port style string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8085"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// FeedWriteTimeout returns the per-frame write deadline.
func (c *Config) FeedWriteTimeout() time.Duration {
	if c.Feed.WriteTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Feed.WriteTimeoutSeconds) * time.Second
}

// FeedPingInterval returns the keepalive period.
func (c *Config) FeedPingInterval() time.Duration {
	if c.Feed.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Feed.PingIntervalSeconds) * time.Second
}
