package cmd

import (
	"bytes"
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifttt-ssh/internal/config"
	"ifttt-ssh/internal/session"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Equal(t, "ifttt-ssh dev\n", out.String())
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	testChdir(t, dir)
	t.Setenv("IFTTT_SERVICE_KEY", "key")

	require.NoError(t, serveCmd.Flags().Set("addr", "127.0.0.1:9999"))
	require.NoError(t, serveCmd.Flags().Set("route-prefix", ""))
	t.Cleanup(func() {
		serveCmd.Flags().Lookup("addr").Changed = false
		serveCmd.Flags().Lookup("route-prefix").Changed = false
		serveAddr, servePrefix = "", ""
	})

	cfg, err := loadConfig(serveCmd)
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.ServiceKey)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "", cfg.Server.RoutePrefix)
	assert.Equal(t, "", cfg.MCP.Addr)
}

func TestLoadConfig_MissingKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	testChdir(t, dir)
	t.Setenv("IFTTT_SERVICE_KEY", "")

	_, err := loadConfig(serveCmd)
	require.Error(t, err)
}

func testServeConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ServiceKey = "key"
	cfg.Server.Addr = "127.0.0.1:0"
	return cfg
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, serve(ctx, testServeConfig()))
}

func TestServe_MCPListenFailureStopsServe(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = busy.Close() })

	cfg := testServeConfig()
	cfg.MCP.Addr = busy.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = serve(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
	assert.NoError(t, ctx.Err(), "serve must return on the listen failure, not the timeout")
}

func TestReportOpenSessions(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sessions := session.NewManager(0)

	assert.Zero(t, reportOpenSessions(logger, sessions))
	assert.Empty(t, buf.String())

	held, err := sessions.Acquire(context.Background(), "example.com", "deploy")
	require.NoError(t, err)

	assert.Equal(t, 1, reportOpenSessions(logger, sessions))
	assert.Contains(t, buf.String(), held.ID)
	assert.Contains(t, buf.String(), "session still open at shutdown")
}

// testChdir changes the working directory for the duration of the test,
// standing in for testing.T.Chdir on toolchains older than Go 1.24.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
