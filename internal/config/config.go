// Package config loads application configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// CADir is the base directory for file-backed CA storage.
	CADir string `yaml:"ca_dir"`

	// Store selects the storage backend: "file" or "sqlite".
	Store string `yaml:"store"`

	// DatabasePath is the SQLite database file, used when Store is "sqlite".
	DatabasePath string `yaml:"database_path"`

	// MinKeyBits is the minimum accepted RSA/DSA key size.
	MinKeyBits int `yaml:"min_key_bits"`

	// DefaultCAValidityDays is the validity applied to new CAs when the
	// caller gives none.
	DefaultCAValidityDays int `yaml:"default_ca_validity_days"`

	// DefaultValidityDays is the validity applied to issued certificates
	// when the caller gives none.
	DefaultValidityDays int `yaml:"default_validity_days"`

	// DefaultSubject fills in subject fields the caller leaves out,
	// e.g. {"C": "US", "O": "Example Corp"}.
	DefaultSubject map[string]string `yaml:"default_subject,omitempty"`

	// AuditLog is the audit log path. Empty disables audit logging.
	AuditLog string `yaml:"audit_log,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		CADir:                 "ca",
		Store:                 "file",
		DatabasePath:          "ca.db",
		MinKeyBits:            2048,
		DefaultCAValidityDays: 3650,
		DefaultValidityDays:   365,
	}
}

// Load reads a YAML config file, applying defaults for missing fields.
// A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.Store {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store)
	}
	if c.MinKeyBits <= 0 {
		return fmt.Errorf("min_key_bits must be positive, got %d", c.MinKeyBits)
	}
	if c.DefaultValidityDays <= 0 {
		return fmt.Errorf("default_validity_days must be positive, got %d", c.DefaultValidityDays)
	}
	if c.DefaultCAValidityDays <= 0 {
		return fmt.Errorf("default_ca_validity_days must be positive, got %d", c.DefaultCAValidityDays)
	}
	return nil
}
