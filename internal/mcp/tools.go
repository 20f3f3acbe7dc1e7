// Package mcp exposes run_ssh_command as an MCP tool over HTTP.
package mcp

import (
	"context"

	"github.com/gin-gonic/gin"
	mcp_golang "github.com/metoro-io/mcp-golang"

	"ifttt-ssh/internal/action"
	"ifttt-ssh/internal/logging"
	"ifttt-ssh/internal/ssh"
)

// ginContextKey is the key under which the gin transport hands the current
// *gin.Context to tool handlers.
const ginContextKey = "ginContext"

// RunSSHCommandArgs defines the arguments of the run_ssh_command tool.
// They mirror the IFTTT action fields, port included as a string.
type RunSSHCommandArgs struct {
	Hostname string `json:"hostname" jsonschema:"description=The SSH server hostname or IP address,required"`
	Port     string `json:"port" jsonschema:"description=The SSH server port as a base-10 integer,required"`
	Username string `json:"username" jsonschema:"description=The SSH username,required"`
	Password string `json:"password" jsonschema:"description=The SSH password,required"`
	Command  string `json:"command" jsonschema:"description=The command to execute,required"`
}

// Executor runs a validated action request.
type Executor interface {
	Execute(ctx context.Context, req action.Request) (ssh.Outcome, error)
}

// Tools implements the MCP tool handlers.
type Tools struct {
	executor Executor
}

// NewTools creates tool handlers backed by executor.
func NewTools(executor Executor) *Tools {
	return &Tools{executor: executor}
}

// RunSSHCommand validates args like the IFTTT action and runs the command.
// Unlike the IFTTT response, the tool result carries the command's stdout.
// The command is cancelled when the MCP call or its HTTP request ends.
func (t *Tools) RunSSHCommand(ctx context.Context, args RunSSHCommandArgs) (*mcp_golang.ToolResponse, error) {
	req, err := action.Validate(action.Fields{
		Hostname: args.Hostname,
		Port:     args.Port,
		Username: args.Username,
		Password: args.Password,
		Command:  args.Command,
	})
	if err != nil {
		return mcp_golang.NewToolResponse(mcp_golang.NewTextContent("Validation error: " + err.Error())), err
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	outcome, err := t.executor.Execute(ctx, req)
	if err != nil {
		return mcp_golang.NewToolResponse(mcp_golang.NewTextContent("Command error: " + err.Error())), err
	}

	if outcome.Skipped {
		return mcp_golang.NewToolResponse(mcp_golang.NewTextContent("Skipped (test host)")), nil
	}

	return mcp_golang.NewToolResponse(mcp_golang.NewTextContent(outcome.Output)), nil
}

// callContext derives the context a tool call runs under. When the call came
// through the HTTP endpoint it follows the request context, which carries
// the request logger, and it is also cancelled with the MCP call itself.
func callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	c, ok := ctx.Value(ginContextKey).(*gin.Context)
	if !ok || c.Request == nil {
		ctx = logging.WithContext(ctx, logging.Component("mcp"))
		return context.WithCancel(ctx)
	}

	callCtx, cancel := context.WithCancel(c.Request.Context())
	stop := context.AfterFunc(ctx, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}
