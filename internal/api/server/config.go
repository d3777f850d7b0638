// Package server provides HTTP server configuration and lifecycle management.
package server

import (
	"fmt"
	"time"
)

// Config holds the server configuration.
type Config struct {
	// Port is the HTTP port to listen on.
	Port int

	// Host is the address to bind to (default: "").
	Host string

	// AuditLog is the path to the audit log, empty when disabled.
	AuditLog string

	// TLS configuration (optional)
	TLSCert string
	TLSKey  string

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            8443,
		Host:            "",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Address returns the full listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
