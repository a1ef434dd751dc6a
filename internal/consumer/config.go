// Package consumer implements the client side of the RPC substrate (C3):
// a bound datagram endpoint, the per-call receive/timeout loop, the retry
// wrapper, and the distinct service-4 monitor state machine.
package consumer

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all consumer configuration, mirroring the CLI flags of §6.
type Config struct {
	Addr string `env:"RPC_CLIENT_ADDR" envDefault:"127.0.0.1"`
	Port int    `env:"RPC_CLIENT_PORT" envDefault:"3000"`

	ServerAddr string `env:"RPC_SERVER_ADDR" envDefault:"127.0.0.1"`
	ServerPort int    `env:"RPC_SERVER_PORT" envDefault:"1234"`

	// Lossy-channel simulation on the client's send path.
	LossEnabled     bool    `env:"RPC_LOSS_ENABLED" envDefault:"false"`
	LossProbability float64 `env:"RPC_LOSS_PROBABILITY" envDefault:"0.25"`

	Retry bool `env:"RPC_RETRY" envDefault:"false"`

	LogLevel  string `env:"RPC_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"RPC_LOG_FORMAT" envDefault:"json"`
}

// LoadConfig reads configuration from an optional .env file and the
// environment, in the same priority order as the server side.
func LoadConfig(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration overrides from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("consumer: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("consumer: validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("RPC_CLIENT_ADDR is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("RPC_CLIENT_PORT must be 0-65535, got %d", c.Port)
	}
	if c.ServerAddr == "" {
		return fmt.Errorf("RPC_SERVER_ADDR is required")
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("RPC_SERVER_PORT must be 1-65535, got %d", c.ServerPort)
	}
	if c.LossProbability < 0 || c.LossProbability > 1 {
		return fmt.Errorf("RPC_LOSS_PROBABILITY must be 0-1, got %.2f", c.LossProbability)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("RPC_LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("RPC_LOG_FORMAT must be one of json, console (got %q)", c.LogFormat)
	}
	return nil
}

// Print renders the configuration for a human reading startup logs.
func (c *Config) Print() {
	fmt.Println("=== Consumer Configuration ===")
	fmt.Printf("Bind:              %s:%d\n", c.Addr, c.Port)
	fmt.Printf("Server:            %s:%d\n", c.ServerAddr, c.ServerPort)
	fmt.Printf("Loss simulation:   enabled=%v probability=%.2f\n", c.LossEnabled, c.LossProbability)
	fmt.Printf("Retry on timeout:  %v\n", c.Retry)
	fmt.Printf("Log level/format:  %s/%s\n", c.LogLevel, c.LogFormat)
	fmt.Println("===============================")
}

// LogConfig emits the configuration as a single structured log line.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("addr", c.Addr).
		Int("port", c.Port).
		Str("server_addr", c.ServerAddr).
		Int("server_port", c.ServerPort).
		Bool("loss_enabled", c.LossEnabled).
		Float64("loss_probability", c.LossProbability).
		Bool("retry", c.Retry).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("consumer configuration loaded")
}
