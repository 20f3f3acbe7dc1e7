// Package cmd implements the ifttt-ssh command line.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ifttt-ssh",
	Short: "IFTTT action service that runs commands over SSH",
	Long: `ifttt-ssh implements an IFTTT service endpoint whose run_ssh_command
action connects to a host with a username and password, runs one command
and acknowledges completion.

Environment Variables:
  IFTTT_SERVICE_KEY              Service key IFTTT sends in IFTTT-Service-Key (required)
  IFTTT_SSH_SERVER_ADDR          HTTP listen address (default :8080)
  IFTTT_SSH_SERVER_ROUTE_PREFIX  Route prefix (default /api)
  IFTTT_SSH_SSH_CONNECT_TIMEOUT  SSH dial and handshake timeout (default none)
  IFTTT_SSH_SSH_MAX_SESSIONS     Concurrent SSH session cap (default unlimited)
  IFTTT_SSH_SSH_KNOWN_HOSTS      known_hosts file for host key verification
  IFTTT_SSH_MCP_ADDR             Enables the MCP endpoint on this address`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./local.settings.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (json, console)")

	rootCmd.SetVersionTemplate(`ifttt-ssh {{.Version}}
`)
}
