package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the review scraper
type Config struct {
	// Scrape settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry behavior for transport errors
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScrapeConfig holds scrape-specific configuration
type ScrapeConfig struct {
	// CacheSize is the capacity of the in-memory staging buffer, in records.
	// Lower values trade memory for more frequent disk writes.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// PageSize is the number of reviews requested per page (max 100).
	PageSize int `yaml:"page_size" json:"page_size"`

	// ReviewType selects "all", "positive", or "negative" reviews.
	ReviewType string `yaml:"review_type" json:"review_type"`

	// PurchaseType selects "all", "steam", or "non_steam_purchase".
	PurchaseType string `yaml:"purchase_type" json:"purchase_type"`

	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Mode is "interval" (fixed delay between requests) or "token_bucket".
	Mode string `yaml:"mode" json:"mode"`

	// MinInterval is the minimum delay between requests in interval mode.
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`

	// RequestsPerMinute configures token_bucket mode.
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds retry configuration for transport errors
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			CacheSize:      500,
			PageSize:       100,
			ReviewType:     "all",
			PurchaseType:   "all",
			RequestTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Mode:              "interval",
			MinInterval:       30 * time.Second,
			RequestsPerMinute: 2,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    60 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("STEAMREVS_CACHE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STEAMREVS_CACHE_SIZE: %w", err)
		}
		c.Scrape.CacheSize = size
	}
	if v := os.Getenv("STEAMREVS_PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STEAMREVS_PAGE_SIZE: %w", err)
		}
		c.Scrape.PageSize = size
	}
	if v := os.Getenv("STEAMREVS_REVIEW_TYPE"); v != "" {
		c.Scrape.ReviewType = v
	}
	if v := os.Getenv("STEAMREVS_PURCHASE_TYPE"); v != "" {
		c.Scrape.PurchaseType = v
	}
	if v := os.Getenv("STEAMREVS_MIN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STEAMREVS_MIN_INTERVAL: %w", err)
		}
		c.RateLimit.MinInterval = d
	}
	if v := os.Getenv("STEAMREVS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Load builds the effective configuration: defaults first, then the
// optional config file, then environment variables. A .env file in the
// working directory is honored before the environment is read.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env file is fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Scrape.CacheSize <= 0 {
		return errors.New("scrape.cache_size must be positive")
	}
	if c.Scrape.PageSize <= 0 || c.Scrape.PageSize > 100 {
		return errors.New("scrape.page_size must be between 1 and 100")
	}
	switch strings.ToLower(c.Scrape.ReviewType) {
	case "all", "positive", "negative":
	default:
		return fmt.Errorf("scrape.review_type must be all, positive, or negative, got %q", c.Scrape.ReviewType)
	}
	switch strings.ToLower(c.Scrape.PurchaseType) {
	case "all", "steam", "non_steam_purchase":
	default:
		return fmt.Errorf("scrape.purchase_type must be all, steam, or non_steam_purchase, got %q", c.Scrape.PurchaseType)
	}
	switch c.RateLimit.Mode {
	case "interval":
		if c.RateLimit.MinInterval <= 0 {
			return errors.New("rate_limit.min_interval must be positive")
		}
	case "token_bucket":
		if c.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("rate_limit.requests_per_minute must be positive")
		}
	default:
		return fmt.Errorf("rate_limit.mode must be interval or token_bucket, got %q", c.RateLimit.Mode)
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	return nil
}
