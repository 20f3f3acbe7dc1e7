package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides for every key except the service key.
const EnvPrefix = "IFTTT_SSH"

// ServiceKeyEnv is the environment variable holding the IFTTT service key.
const ServiceKeyEnv = "IFTTT_SERVICE_KEY"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with precedence defaults < config file < env vars.
// The result is read once; there is no reload on change.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// local.settings.json as written for Azure Functions keeps app settings under "Values".
	if cfg.ServiceKey == "" {
		cfg.ServiceKey = l.v.GetString("values." + strings.ToLower(ServiceKeyEnv))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("local.settings")
	v.AddConfigPath(".")
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "ifttt-ssh"))
	}
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "ifttt-ssh"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("ifttt_service_key", cfg.ServiceKey)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.route_prefix", cfg.Server.RoutePrefix)
	v.SetDefault("ssh.connect_timeout", cfg.SSH.ConnectTimeout)
	v.SetDefault("ssh.max_sessions", cfg.SSH.MaxSessions)
	v.SetDefault("ssh.known_hosts", cfg.SSH.KnownHosts)
	v.SetDefault("ssh.allowed_hosts", cfg.SSH.AllowedHosts)
	v.SetDefault("ssh.denied_hosts", cfg.SSH.DeniedHosts)
	v.SetDefault("mcp.addr", cfg.MCP.Addr)
	v.SetDefault("log.level", cfg.Logging.Level)
	v.SetDefault("log.format", cfg.Logging.Format)

	_ = v.BindEnv("ifttt_service_key", ServiceKeyEnv)
	bindEnvVars(v)

	v.AutomaticEnv()
}

func bindEnvVars(v *viper.Viper) {
	envBindings := []string{
		"server.addr",
		"server.route_prefix",
		"ssh.connect_timeout",
		"ssh.max_sessions",
		"ssh.known_hosts",
		"ssh.allowed_hosts",
		"ssh.denied_hosts",
		"mcp.addr",
		"log.level",
		"log.format",
	}

	for _, key := range envBindings {
		_ = v.BindEnv(key)
	}
}

func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && l.configFile == "" {
			return nil
		}
		return err
	}

	return nil
}
