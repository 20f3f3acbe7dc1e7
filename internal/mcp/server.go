package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	mcp_golang "github.com/metoro-io/mcp-golang"
	mcphttp "github.com/metoro-io/mcp-golang/transport/http"

	"ifttt-ssh/internal/api"
	"ifttt-ssh/internal/logging"
	"ifttt-ssh/internal/security"
)

// Endpoint is the HTTP path of the MCP transport.
const Endpoint = "/mcp"

// Authenticator validates the presented service key.
type Authenticator interface {
	Authenticate(presented string) error
}

// Server is the MCP endpoint. Every request must carry the IFTTT service key.
type Server struct {
	transport *mcphttp.GinTransport
	engine    *gin.Engine
}

// NewServer creates an MCP server with all tools registered, guarded by auth.
func NewServer(auth Authenticator, version string, tools *Tools) (*Server, error) {
	transport := mcphttp.NewGinTransport()

	server := mcp_golang.NewServer(
		transport,
		mcp_golang.WithName("ifttt-ssh"),
		mcp_golang.WithInstructions("Run a single shell command on a remote host over SSH with password authentication"),
		mcp_golang.WithVersion(version),
	)

	err := server.RegisterTool("run_ssh_command", "Connect to a host over SSH, run one command and return its output", tools.RunSSHCommand)
	if err != nil {
		return nil, err
	}

	// The gin transport has no listener of its own; Serve only connects the
	// protocol handlers to it.
	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("failed to start MCP protocol: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(withRequestLogging(), gin.Recovery(), withServiceKey(auth))
	engine.POST(Endpoint, transport.Handler())

	return &Server{
		transport: transport,
		engine:    engine,
	}, nil
}

// Handler returns the HTTP handler of the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx is cancelled, then shuts down the HTTP
// server and closes the transport.
func (s *Server) Serve(ctx context.Context, addr string) error {
	defer s.transport.Close()
	return api.Serve(ctx, addr, s.Handler())
}

// withServiceKey rejects requests whose IFTTT-Service-Key header does not
// match before the transport reads the body.
func withServiceKey(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Authenticate(c.GetHeader(security.ServiceKeyHeader)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.NewError(api.MessageFor(err)))
			return
		}
		c.Next()
	}
}

func withRequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		logger := logging.Component("mcp").With().
			Str("request_id", requestID).
			Str("path", c.Request.URL.Path).
			Logger()
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

		start := time.Now()
		c.Next()

		logger.Info().
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}
