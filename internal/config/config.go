// Package config handles Parafeur configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir string `json:"data_dir"`

	// Server
	Server ServerConfig `json:"server"`

	// Notifications
	Notifications NotificationConfig `json:"notifications"`

	// Logging
	Log LogConfig `json:"log"`
}

// ServerConfig for HTTP server
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// NotificationConfig for the notification center
type NotificationConfig struct {
	RetentionDays int `json:"retention_days"` // read/dismissed rows older than this get purged
}

// LogConfig for the logger
type LogConfig struct {
	Level string `json:"level"` // debug, info, warn, error
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir: filepath.Join(home, ".parafeur"),
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Notifications: NotificationConfig{
			RetentionDays: 90,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DatabasePath returns the sqlite file location inside the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "parafeur.db")
}

// Load loads config from file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
