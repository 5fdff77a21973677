package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration reads either a string such as "30s" or integer nanoseconds
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// jsonConfig is the file form of Config
type jsonConfig struct {
	Port          int      `json:"port"`
	DatabasePath  string   `json:"database_path"`
	KeyPath       string   `json:"key_path"`
	KeyPassphrase string   `json:"key_passphrase"`
	NodeID        string   `json:"node_id"`
	LogLevel      string   `json:"log_level"`
	EnableCORS    bool     `json:"enable_cors"`
	RateLimit     int      `json:"rate_limit"`
	ReadTimeout   Duration `json:"read_timeout"`
	WriteTimeout  Duration `json:"write_timeout"`
	PurgeAfter    Duration `json:"purge_after"`
}

// Load reads the JSON file at path over the defaults. Keys missing from the
// file keep their default value. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := overlayJSON(cfg, data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

func overlayJSON(cfg *Config, data []byte) error {
	c := jsonConfig{
		Port:          cfg.Port,
		DatabasePath:  cfg.DatabasePath,
		KeyPath:       cfg.KeyPath,
		KeyPassphrase: cfg.KeyPassphrase,
		NodeID:        cfg.NodeID,
		LogLevel:      cfg.LogLevel,
		EnableCORS:    cfg.EnableCORS,
		RateLimit:     cfg.RateLimit,
		ReadTimeout:   Duration{cfg.ReadTimeout},
		WriteTimeout:  Duration{cfg.WriteTimeout},
		PurgeAfter:    Duration{cfg.PurgeAfter},
	}

	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}

	cfg.Port = c.Port
	cfg.DatabasePath = c.DatabasePath
	cfg.KeyPath = c.KeyPath
	cfg.KeyPassphrase = c.KeyPassphrase
	cfg.NodeID = c.NodeID
	cfg.LogLevel = c.LogLevel
	cfg.EnableCORS = c.EnableCORS
	cfg.RateLimit = c.RateLimit
	cfg.ReadTimeout = c.ReadTimeout.Duration
	cfg.WriteTimeout = c.WriteTimeout.Duration
	cfg.PurgeAfter = c.PurgeAfter.Duration

	return nil
}
