// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds the service configuration. DATABASE_URL empty means the
// in-memory store (development only); REDIS_URL empty disables the cache.
type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisURL    string        `env:"REDIS_URL"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
