package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all server configuration.
//
// Tags:
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	Addr string `env:"RPC_SERVER_ADDR" envDefault:"127.0.0.1"`
	Port int    `env:"RPC_SERVER_PORT" envDefault:"1234"`

	// Lossy-channel simulation (§6): drop accepted datagrams before dispatch.
	LossEnabled     bool    `env:"RPC_LOSS_ENABLED" envDefault:"false"`
	LossProbability float64 `env:"RPC_LOSS_PROBABILITY" envDefault:"0.25"`

	// Store backend: "memory" or "sqlite".
	StoreBackend string `env:"RPC_STORE_BACKEND" envDefault:"memory"`
	SQLiteDSN    string `env:"RPC_SQLITE_DSN" envDefault:"flightres.db"`

	// Admission control (A4).
	MaxInFlight  int     `env:"RPC_MAX_IN_FLIGHT" envDefault:"512"`
	RateLimitRPS float64 `env:"RPC_RATE_LIMIT_RPS" envDefault:"500"`
	RateBurst    int     `env:"RPC_RATE_BURST" envDefault:"1000"`

	// Metrics (A3).
	MetricsAddr string `env:"RPC_METRICS_ADDR" envDefault:":9090"`

	// System stats sampling (A5).
	StatsInterval time.Duration `env:"RPC_STATS_INTERVAL" envDefault:"15s"`

	LogLevel  string `env:"RPC_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"RPC_LOG_FORMAT" envDefault:"json"`
}

// LoadConfig reads configuration from an optional .env file and the
// environment. Priority: environment variables > .env file > defaults.
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
		return nil, fmt.Errorf("server: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server: validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("RPC_SERVER_ADDR is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("RPC_SERVER_PORT must be 1-65535, got %d", c.Port)
	}
	if c.LossProbability < 0 || c.LossProbability > 1 {
		return fmt.Errorf("RPC_LOSS_PROBABILITY must be 0-1, got %.2f", c.LossProbability)
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("RPC_MAX_IN_FLIGHT must be > 0, got %d", c.MaxInFlight)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RPC_RATE_LIMIT_RPS must be > 0, got %.2f", c.RateLimitRPS)
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("RPC_RATE_BURST must be > 0, got %d", c.RateBurst)
	}

	switch c.StoreBackend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf(`RPC_STORE_BACKEND must be "memory" or "sqlite", got %q`, c.StoreBackend)
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
	fmt.Println("=== Server Configuration ===")
	fmt.Printf("Listen:            %s:%d\n", c.Addr, c.Port)
	fmt.Printf("Store backend:     %s\n", c.StoreBackend)
	fmt.Printf("Loss simulation:   enabled=%v probability=%.2f\n", c.LossEnabled, c.LossProbability)
	fmt.Printf("Max in-flight:     %d\n", c.MaxInFlight)
	fmt.Printf("Rate limit:        %.1f req/s burst %d\n", c.RateLimitRPS, c.RateBurst)
	fmt.Printf("Metrics addr:      %s\n", c.MetricsAddr)
	fmt.Printf("Stats interval:    %s\n", c.StatsInterval)
	fmt.Printf("Log level/format:  %s/%s\n", c.LogLevel, c.LogFormat)
	fmt.Println("=============================")
}

// LogConfig emits the configuration as a single structured log line.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("addr", c.Addr).
		Int("port", c.Port).
		Str("store_backend", c.StoreBackend).
		Bool("loss_enabled", c.LossEnabled).
		Float64("loss_probability", c.LossProbability).
		Int("max_in_flight", c.MaxInFlight).
		Float64("rate_limit_rps", c.RateLimitRPS).
		Int("rate_burst", c.RateBurst).
		Str("metrics_addr", c.MetricsAddr).
		Dur("stats_interval", c.StatsInterval).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("server configuration loaded")
}
