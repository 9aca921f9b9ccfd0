package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	libconfig "gridmarket/backend/libs/config"
)

// Config defines gateway configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Services   ServicesConfig   `yaml:"services"`
	HTTPClient HTTPClientConfig `yaml:"httpClient"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit"`
}

// HTTPConfig is the public listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"API_GATEWAY_HTTP_PORT"`
}

// ServicesConfig holds upstream base URLs.
type ServicesConfig struct {
	MarketURL string `yaml:"marketUrl" env:"MARKET_SERVICE_URL"`
}

// HTTPClientConfig tunes upstream calls.
type HTTPClientConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds" env:"API_GATEWAY_HTTP_TIMEOUT"`
}

// RateLimitConfig is applied per client address. RequestsPerSecond <= 0 disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond" env:"API_GATEWAY_RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" env:"API_GATEWAY_RATE_LIMIT_BURST"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTP:       HTTPConfig{Port: "8080"},
		HTTPClient: HTTPClientConfig{TimeoutSeconds: 5},
		RateLimit:  RateLimitConfig{RequestsPerSecond: 50, Burst: 100},
	}
}

// Load configuration via shared helper.
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

// Validate checks the upstream URL and rate limit settings.
func (c *Config) Validate() error {
	raw := strings.TrimSpace(c.Services.MarketURL)
	if raw == "" {
		return errors.New("config: market service url required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid market service url %q", raw)
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return errors.New("config: rate limit burst must be positive")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// HTTPTimeout returns http client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPClient.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.HTTPClient.TimeoutSeconds) * time.Second
}
