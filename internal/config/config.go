// Package config provides configuration structures and loading logic for the bank daemon.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds the global configuration for the bank daemon.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Admin    AdminConfig    `yaml:"admin"`
	Exchange ExchangeConfig `yaml:"exchange"`
}

// ServerConfig holds configuration for the HTTP listeners.
type ServerConfig struct {
	Address        string        `yaml:"address"`
	MetricsAddress string        `yaml:"metrics_address"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AdminConfig holds the administrator credential. It is compared in plain
// text, like account credentials.
type AdminConfig struct {
	Password string `yaml:"password"`
}

// ExchangeConfig holds the fixed USD/KZT rate: one dollar buys UsdToKzt tenge.
type ExchangeConfig struct {
	UsdToKzt decimal.Decimal `yaml:"usd_to_kzt"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        ":8080",
			MetricsAddress: ":9090",
			RequestTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Exchange: ExchangeConfig{
			UsdToKzt: decimal.NewFromInt(500),
		},
	}
}

// Load reads configuration from a file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("BANK_ADDR"); val != "" {
		cfg.Server.Address = val
	}
	if val := os.Getenv("BANK_METRICS_ADDR"); val != "" {
		cfg.Server.MetricsAddress = val
	}
	if val := os.Getenv("BANK_REQUEST_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid BANK_REQUEST_TIMEOUT %q: %w", val, err)
		}
		cfg.Server.RequestTimeout = d
	}
	if val := os.Getenv("BANK_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val, ok := os.LookupEnv("BANK_ADMIN_PASSWORD"); ok {
		cfg.Admin.Password = val
	}
	if val := os.Getenv("BANK_USD_TO_KZT"); val != "" {
		rate, err := decimal.NewFromString(val)
		if err != nil {
			return fmt.Errorf("invalid BANK_USD_TO_KZT %q: %w", val, err)
		}
		cfg.Exchange.UsdToKzt = rate
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if !c.Exchange.UsdToKzt.IsPositive() {
		return fmt.Errorf("exchange.usd_to_kzt must be positive, got %s", c.Exchange.UsdToKzt)
	}
	return nil
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
