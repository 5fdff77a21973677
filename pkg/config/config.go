// Package config handles node configuration: defaults, an optional JSON
// file and command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config holds runtime settings of a node
type Config struct {
	Port          int
	DatabasePath  string
	KeyPath       string
	KeyPassphrase string
	NodeID        string
	LogLevel      string
	EnableCORS    bool
	RateLimit     int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PurgeAfter    time.Duration
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Port:         8080,
		DatabasePath: "./data/messages.db",
		KeyPath:      "./keys/node.pem",
		LogLevel:     "info",
		EnableCORS:   true,
		RateLimit:    100,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PurgeAfter:   30 * 24 * time.Hour,
	}
}

// Validate checks that the configuration can run a node
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.KeyPath == "" {
		errs = append(errs, errors.New("key_path is required"))
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate_limit must not be negative"))
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.PurgeAfter < 0 {
		errs = append(errs, errors.New("purge_after must not be negative"))
	}

	return errors.Join(errs...)
}
