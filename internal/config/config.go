package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration, loaded from an optional YAML file with
// environment variable overrides on top.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	ENTSOE     ENTSOEConfig
	Collection CollectionConfig
	Backfill   BackfillConfig
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ENTSOEConfig configures the upstream API client and transport
type ENTSOEConfig struct {
	BaseURL            string        `yaml:"base_url"`
	SecurityToken      string        `yaml:"security_token"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	PoolTimeout        time.Duration `yaml:"pool_timeout"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	RateLimit          float64       `yaml:"rate_limit"`
	RateBurst          int           `yaml:"rate_burst"`
	RetryMaxAttempts   int           `yaml:"retry_max_attempts"`
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay      time.Duration `yaml:"retry_max_delay"`
	RetryMultiplier    float64       `yaml:"retry_multiplier"`
}

// CollectionConfig configures periodic recent-window collection
type CollectionConfig struct {
	Areas        []string      `yaml:"areas"`
	DataTypes    []string      `yaml:"data_types"`
	RecentWindow time.Duration `yaml:"recent_window"`
	Interval     time.Duration `yaml:"interval"`
}

// BackfillConfig configures historical catch-up
type BackfillConfig struct {
	StartDate  string `yaml:"start_date"` // YYYY-MM-DD
	WindowDays int    `yaml:"window_days"`
}

type fileConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	ENTSOE     ENTSOEConfig     `yaml:"entsoe"`
	Collection CollectionConfig `yaml:"collection"`
	Backfill   BackfillConfig   `yaml:"backfill"`
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by ENERGY_CONFIG_FILE (if set), then environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("ENERGY_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg.applyFile(fc)
	}

	cfg.applyEnv()

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "energy",
			Password:        "energy",
			Database:        "energy",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		ENTSOE: ENTSOEConfig{
			BaseURL:            "https://web-api.tp.entsoe.eu/api",
			ConnectTimeout:     10 * time.Second,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       10 * time.Second,
			PoolTimeout:        5 * time.Second,
			MaxConnections:     10,
			MaxIdleConnections: 5,
			RateLimit:          2.0,
			RateBurst:          2,
			RetryMaxAttempts:   4,
			RetryBaseDelay:     500 * time.Millisecond,
			RetryMaxDelay:      30 * time.Second,
			RetryMultiplier:    2.0,
		},
		Collection: CollectionConfig{
			Areas:        []string{"DE"},
			DataTypes:    []string{"load"},
			RecentWindow: 24 * time.Hour,
			Interval:     15 * time.Minute,
		},
		Backfill: BackfillConfig{
			StartDate:  "2023-01-01",
			WindowDays: 30,
		},
	}
}

func (c *Config) applyFile(fc fileConfig) {
	mergeString(&c.Server.Host, fc.Server.Host)
	mergeInt(&c.Server.Port, fc.Server.Port)
	mergeDuration(&c.Server.ReadTimeout, fc.Server.ReadTimeout)
	mergeDuration(&c.Server.WriteTimeout, fc.Server.WriteTimeout)
	mergeDuration(&c.Server.IdleTimeout, fc.Server.IdleTimeout)

	mergeString(&c.Database.Host, fc.Database.Host)
	mergeInt(&c.Database.Port, fc.Database.Port)
	mergeString(&c.Database.User, fc.Database.User)
	mergeString(&c.Database.Password, fc.Database.Password)
	mergeString(&c.Database.Database, fc.Database.Database)
	mergeString(&c.Database.SSLMode, fc.Database.SSLMode)
	mergeInt(&c.Database.MaxOpenConns, fc.Database.MaxOpenConns)
	mergeInt(&c.Database.MaxIdleConns, fc.Database.MaxIdleConns)
	mergeDuration(&c.Database.ConnMaxLifetime, fc.Database.ConnMaxLifetime)
	mergeDuration(&c.Database.ConnMaxIdleTime, fc.Database.ConnMaxIdleTime)

	mergeString(&c.Logging.Level, fc.Logging.Level)

	mergeString(&c.ENTSOE.BaseURL, fc.ENTSOE.BaseURL)
	mergeString(&c.ENTSOE.SecurityToken, fc.ENTSOE.SecurityToken)
	mergeDuration(&c.ENTSOE.ConnectTimeout, fc.ENTSOE.ConnectTimeout)
	mergeDuration(&c.ENTSOE.ReadTimeout, fc.ENTSOE.ReadTimeout)
	mergeDuration(&c.ENTSOE.WriteTimeout, fc.ENTSOE.WriteTimeout)
	mergeDuration(&c.ENTSOE.PoolTimeout, fc.ENTSOE.PoolTimeout)
	mergeInt(&c.ENTSOE.MaxConnections, fc.ENTSOE.MaxConnections)
	mergeInt(&c.ENTSOE.MaxIdleConnections, fc.ENTSOE.MaxIdleConnections)
	mergeFloat(&c.ENTSOE.RateLimit, fc.ENTSOE.RateLimit)
	mergeInt(&c.ENTSOE.RateBurst, fc.ENTSOE.RateBurst)
	mergeInt(&c.ENTSOE.RetryMaxAttempts, fc.ENTSOE.RetryMaxAttempts)
	mergeDuration(&c.ENTSOE.RetryBaseDelay, fc.ENTSOE.RetryBaseDelay)
	mergeDuration(&c.ENTSOE.RetryMaxDelay, fc.ENTSOE.RetryMaxDelay)
	mergeFloat(&c.ENTSOE.RetryMultiplier, fc.ENTSOE.RetryMultiplier)

	if len(fc.Collection.Areas) > 0 {
		c.Collection.Areas = fc.Collection.Areas
	}
	if len(fc.Collection.DataTypes) > 0 {
		c.Collection.DataTypes = fc.Collection.DataTypes
	}
	mergeDuration(&c.Collection.RecentWindow, fc.Collection.RecentWindow)
	mergeDuration(&c.Collection.Interval, fc.Collection.Interval)

	mergeString(&c.Backfill.StartDate, fc.Backfill.StartDate)
	mergeInt(&c.Backfill.WindowDays, fc.Backfill.WindowDays)
}

func (c *Config) applyEnv() {
	envString(&c.Server.Host, "SERVER_HOST")
	envInt(&c.Server.Port, "SERVER_PORT")

	envString(&c.Database.Host, "DB_HOST")
	envInt(&c.Database.Port, "DB_PORT")
	envString(&c.Database.User, "DB_USER")
	envString(&c.Database.Password, "DB_PASSWORD")
	envString(&c.Database.Database, "DB_NAME")
	envString(&c.Database.SSLMode, "DB_SSLMODE")
	envInt(&c.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	envInt(&c.Database.MaxIdleConns, "DB_MAX_IDLE_CONNS")

	envString(&c.Logging.Level, "LOG_LEVEL")

	envString(&c.ENTSOE.BaseURL, "ENTSOE_BASE_URL")
	envString(&c.ENTSOE.SecurityToken, "ENTSOE_SECURITY_TOKEN")
	envFloat(&c.ENTSOE.RateLimit, "ENTSOE_RATE_LIMIT")
	envInt(&c.ENTSOE.RetryMaxAttempts, "ENTSOE_RETRY_MAX_ATTEMPTS")

	envString(&c.Backfill.StartDate, "BACKFILL_START_DATE")
	envInt(&c.Backfill.WindowDays, "BACKFILL_WINDOW_DAYS")
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" || c.Database.Database == "" {
		return fmt.Errorf("database host and name are required")
	}
	if c.ENTSOE.BaseURL == "" {
		return fmt.Errorf("entsoe base_url is required")
	}
	if c.ENTSOE.RetryMaxAttempts < 1 {
		return fmt.Errorf("entsoe retry_max_attempts must be at least 1")
	}
	if c.ENTSOE.RetryMultiplier < 1.0 {
		return fmt.Errorf("entsoe retry_multiplier must be at least 1.0")
	}
	if _, err := c.BackfillStartDate(); err != nil {
		return err
	}
	if c.Backfill.WindowDays < 1 || c.Backfill.WindowDays > 365 {
		return fmt.Errorf("backfill window_days must be between 1 and 365")
	}
	return nil
}

// BackfillStartDate parses the configured backfill seed date
func (c *Config) BackfillStartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Backfill.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid backfill start_date %q: %w", c.Backfill.StartDate, err)
	}
	return t.UTC(), nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
