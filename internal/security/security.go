// Package security authenticates IFTTT callers and applies the optional
// target host policy.
package security

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"
)

// ServiceKeyHeader is the header IFTTT uses to present the service key.
const ServiceKeyHeader = "IFTTT-Service-Key"

// ErrUnauthorized is returned when the presented service key does not match.
var ErrUnauthorized = errors.New("unable to validate IFTTT service key")

// Config holds security configuration settings
type Config struct {
	ServiceKey   string   // Shared secret expected in the IFTTT-Service-Key header
	AllowedHosts []string // List of allowed hosts (if empty, all hosts are allowed)
	DeniedHosts  []string // List of denied hosts
}

// Manager handles caller authentication and host checks
type Manager struct {
	config Config
	logger zerolog.Logger
}

// NewManager creates a new security manager with the given configuration
func NewManager(config Config, logger zerolog.Logger) *Manager {
	return &Manager{
		config: config,
		logger: logger,
	}
}

// Authenticate compares the presented key with the configured service key.
// The comparison is an exact match done in constant time.
func (m *Manager) Authenticate(presented string) error {
	if subtle.ConstantTimeCompare([]byte(presented), []byte(m.config.ServiceKey)) != 1 {
		m.logger.Warn().Bool("key_present", presented != "").Msg("service key rejected")
		return ErrUnauthorized
	}
	return nil
}

// CheckHost verifies if a host is allowed to connect
func (m *Manager) CheckHost(host string) error {
	// Remove port from host if present
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	for _, denied := range m.config.DeniedHosts {
		if matchHost(host, denied) {
			m.logger.Warn().Str("host", host).Str("rule", denied).Msg("host denied")
			return fmt.Errorf("host %s is denied", host)
		}
	}

	if len(m.config.AllowedHosts) == 0 {
		return nil
	}

	for _, allowed := range m.config.AllowedHosts {
		if matchHost(host, allowed) {
			return nil
		}
	}

	m.logger.Warn().Str("host", host).Msg("host not allowed")
	return fmt.Errorf("host %s is not allowed", host)
}

// matchHost checks if a host matches a pattern (exact, *.suffix or CIDR)
func matchHost(host, pattern string) bool {
	if strings.EqualFold(host, pattern) {
		return true
	}

	if strings.HasPrefix(pattern, "*.") {
		suffix := strings.ToLower(pattern[1:])
		return strings.HasSuffix(strings.ToLower(host), suffix)
	}

	if strings.Contains(pattern, "/") {
		_, ipNet, err := net.ParseCIDR(pattern)
		if err != nil {
			return false
		}
		ip := net.ParseIP(host)
		if ip == nil {
			return false
		}
		return ipNet.Contains(ip)
	}

	return false
}
