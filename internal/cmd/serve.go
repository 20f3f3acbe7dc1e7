package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ifttt-ssh/internal/api"
	"ifttt-ssh/internal/config"
	"ifttt-ssh/internal/logging"
	"ifttt-ssh/internal/mcp"
	"ifttt-ssh/internal/security"
	"ifttt-ssh/internal/session"
	"ifttt-ssh/internal/ssh"
)

var (
	serveAddr   string
	servePrefix string
	serveMCP    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the IFTTT service endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&servePrefix, "route-prefix", "", "route prefix (overrides server.route_prefix)")
	serveCmd.Flags().StringVar(&serveMCP, "mcp-addr", "", "enable the MCP endpoint on this address")

	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads configuration and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("route-prefix") {
		cfg.Server.RoutePrefix = servePrefix
	}
	if cmd.Flags().Changed("mcp-addr") {
		cfg.MCP.Addr = serveMCP
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if used := loader.ConfigFileUsed(); used != "" {
		logger := logging.Component("config")
		logger.Debug().Str("config_file", used).Msg("loaded config file")
	}

	return cfg, nil
}

// serve wires the components together and blocks until ctx is cancelled or
// a listener fails.
func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.Component("serve")

	securityManager := security.NewManager(security.Config{
		ServiceKey:   cfg.ServiceKey,
		AllowedHosts: cfg.SSH.AllowedHosts,
		DeniedHosts:  cfg.SSH.DeniedHosts,
	}, logging.Component("security"))

	sessionManager := session.NewManager(int64(cfg.SSH.MaxSessions))

	executor := ssh.NewExecutor(
		&ssh.NativeDialer{
			Timeout:        cfg.SSH.ConnectTimeout,
			KnownHostsPath: cfg.SSH.KnownHosts,
		},
		ssh.WithSessionManager(sessionManager),
		ssh.WithHostPolicy(securityManager),
	)

	handler := api.NewHandler(securityManager, executor, cfg.Server.RoutePrefix)

	var mcpServer *mcp.Server
	if cfg.MCP.Addr != "" {
		var err error
		mcpServer, err = mcp.NewServer(securityManager, Version, mcp.NewTools(executor))
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
	}

	logger.Info().
		Str("version", Version).
		Str("route_prefix", cfg.Server.RoutePrefix).
		Int64("max_sessions", sessionManager.Limit()).
		Bool("host_key_verification", cfg.SSH.KnownHosts != "").
		Msg("ifttt-ssh starting")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return api.Serve(ctx, cfg.Server.Addr, handler.Routes())
	})

	if mcpServer != nil {
		logger.Info().Str("addr", cfg.MCP.Addr).Str("endpoint", mcp.Endpoint).Msg("MCP endpoint enabled")
		g.Go(func() error {
			return mcpServer.Serve(ctx, cfg.MCP.Addr)
		})
	}

	err := g.Wait()
	reportOpenSessions(logger, sessionManager)
	return err
}

// reportOpenSessions logs the sessions still held when the servers stop and
// returns how many there were.
func reportOpenSessions(logger zerolog.Logger, sessions *session.Manager) int {
	open := sessions.ListSessions()
	for _, s := range open {
		logger.Warn().
			Str("session_id", s.ID).
			Str("host", s.Host).
			Str("user", s.Username).
			Dur("age", time.Since(s.CreatedAt)).
			Msg("session still open at shutdown")
	}
	return len(open)
}
