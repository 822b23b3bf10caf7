// Package config loads the service configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// ConnString builds the lib/pq connection string.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds the price cache settings. An empty Addr disables the
// cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLStr   string        `yaml:"ttl"` // e.g. "5m"
	TTL      time.Duration `yaml:"-"`
}

// HorizonConfig holds the ledger valuation source settings.
type HorizonConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutStr string        `yaml:"timeout"` // e.g. "10s"
	Timeout    time.Duration `yaml:"-"`
}

// SchedulerConfig holds the trigger settings for the serve mode.
type SchedulerConfig struct {
	SweepIntervalStr string `yaml:"sweep_interval"` // e.g. "1h"
	SweepInterval    time.Duration
	RunImmediately   bool `yaml:"run_immediately"`
}

// Config is the full service configuration.
type Config struct {
	LogLevel  string            `yaml:"log_level"`
	Postgres  PostgresConfig    `yaml:"postgres"`
	Redis     RedisConfig       `yaml:"redis"`
	Horizon   HorizonConfig     `yaml:"horizon"`
	Scheduler SchedulerConfig   `yaml:"scheduler"`
	Prices    map[string]string `yaml:"prices"` // asset code -> unit price
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{
		LogLevel: "info",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "lumenpulse",
			SSLMode:  "disable",
		},
		Horizon: HorizonConfig{
			BaseURL: "https://horizon.stellar.org",
			Timeout: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			SweepInterval: time.Hour,
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
	}
	applyEnvOverrides(cfg)
	return cfg
}

// Load reads the YAML configuration at path, applies environment overrides,
// and parses duration fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Redis.TTL, err = parseDuration(cfg.Redis.TTLStr, 5*time.Minute); err != nil {
		return nil, fmt.Errorf("invalid redis ttl: %w", err)
	}
	if cfg.Horizon.Timeout, err = parseDuration(cfg.Horizon.TimeoutStr, 10*time.Second); err != nil {
		return nil, fmt.Errorf("invalid horizon timeout: %w", err)
	}
	if cfg.Scheduler.SweepInterval, err = parseDuration(cfg.Scheduler.SweepIntervalStr, time.Hour); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	return cfg, nil
}

// PriceTable parses the configured price map into decimals.
func (c *Config) PriceTable() (map[string]decimal.Decimal, error) {
	table := make(map[string]decimal.Decimal, len(c.Prices))
	for code, priceStr := range c.Prices {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", code, err)
		}
		table[code] = price
	}
	return table, nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

// applyEnvOverrides lets environment variables override file values, which
// keeps the container deployment story simple.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HORIZON_URL"); v != "" {
		cfg.Horizon.BaseURL = v
	}
	if v := os.Getenv("RUN_IMMEDIATELY"); v != "" {
		cfg.Scheduler.RunImmediately = v == "true"
	}
}
