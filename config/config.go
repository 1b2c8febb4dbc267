/*
config.go - Server configuration

PURPOSE:
  Loads server configuration from a TOML file, falling back to defaults
  when no file exists. Command-line flags override file values (handled
  in cmd/server).

FILE FORMAT (config.toml):
  port = 8080
  db_path = "timesheets.db"
  allowed_origins = ["http://localhost:3000"]
  shutdown_timeout_seconds = 30

SEE ALSO:
  - cmd/server/main.go: Flag overrides and startup
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable of the server process.
type Config struct {
	Port                   int      `toml:"port"`
	DBPath                 string   `toml:"db_path"`
	AllowedOrigins         []string `toml:"allowed_origins"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:                   8080,
		DBPath:                 "timesheets.db",
		AllowedOrigins:         []string{"http://localhost:3000"},
		ShutdownTimeoutSeconds: 30,
	}
}

// Load reads the TOML file at path on top of the defaults. A missing
// file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("shutdown_timeout_seconds must be positive")
	}
	return nil
}

// ShutdownTimeout returns the shutdown grace period as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
