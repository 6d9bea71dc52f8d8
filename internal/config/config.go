package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the standalone server's runtime settings, loaded from the
// environment.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"FINNIE_ADDR" envDefault:":8080"`

	// RedealDelay is the pause between an all-pass bidding round and the
	// automatic fresh deal.
	RedealDelay time.Duration `env:"FINNIE_REDEAL_DELAY" envDefault:"2s"`

	// WriteTimeout bounds a single websocket write; peers slower than this
	// are treated as gone.
	WriteTimeout time.Duration `env:"FINNIE_WRITE_TIMEOUT" envDefault:"5s"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `env:"FINNIE_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Seed fixes the deal RNG when non-zero; leave 0 in production.
	Seed int64 `env:"FINNIE_SEED" envDefault:"0"`

	// Debug switches logging to the human-readable development encoder.
	Debug bool `env:"FINNIE_DEBUG" envDefault:"false"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
