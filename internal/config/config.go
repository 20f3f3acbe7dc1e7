// Package config handles ifttt-ssh configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	// ServiceKey is the shared secret IFTTT presents in the IFTTT-Service-Key header.
	ServiceKey string `mapstructure:"ifttt_service_key"`

	Server  ServerConfig  `mapstructure:"server"`
	SSH     SSHConfig     `mapstructure:"ssh"`
	MCP     MCPConfig     `mapstructure:"mcp"`
	Logging LoggingConfig `mapstructure:"log"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address of the IFTTT endpoint.
	Addr string `mapstructure:"addr"`

	// RoutePrefix is prepended to every route ("/api" matches Azure Functions hosting).
	RoutePrefix string `mapstructure:"route_prefix"`
}

// SSHConfig contains settings for outbound SSH sessions.
type SSHConfig struct {
	// ConnectTimeout bounds the TCP dial and handshake. Zero disables it.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// MaxSessions caps concurrent remote sessions. Zero means unlimited.
	MaxSessions int `mapstructure:"max_sessions"`

	// KnownHosts is an optional known_hosts file. When empty host keys are not verified.
	KnownHosts string `mapstructure:"known_hosts"`

	// AllowedHosts restricts target hosts (exact, *.suffix or CIDR). Empty allows all.
	AllowedHosts []string `mapstructure:"allowed_hosts"`

	// DeniedHosts lists target hosts that are always refused.
	DeniedHosts []string `mapstructure:"denied_hosts"`
}

// MCPConfig contains settings for the optional MCP endpoint.
type MCPConfig struct {
	// Addr enables the MCP HTTP transport when non-empty.
	Addr string `mapstructure:"addr"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a configuration with default values.
// The service key has no default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			RoutePrefix: "/api",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ServiceKey == "" {
		return errors.New("IFTTT_SERVICE_KEY is required")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if p := c.Server.RoutePrefix; p != "" && (!strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/")) {
		return fmt.Errorf("server.route_prefix must start with '/' and not end with '/', got %q", p)
	}

	if c.SSH.ConnectTimeout < 0 {
		return fmt.Errorf("ssh.connect_timeout must not be negative")
	}

	if c.SSH.MaxSessions < 0 {
		return fmt.Errorf("ssh.max_sessions must not be negative")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
