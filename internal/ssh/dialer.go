// Package ssh runs a single command on a remote host over SSH.
package ssh

import (
	"context"
	"fmt"
)

// Target identifies a remote host and the password credentials for it.
type Target struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Dialer opens authenticated connections to remote hosts.
type Dialer interface {
	// Dial connects and authenticates. The returned Conn must be closed by the caller.
	Dial(ctx context.Context, target Target) (Conn, error)
}

// Conn is an open SSH connection able to run commands.
type Conn interface {
	// Run executes one command and returns its stdout and stderr output.
	// A non-zero remote exit status is reported as *ExitError.
	Run(ctx context.Context, command string) (stdout, stderr []byte, err error)

	// Close ends the connection.
	Close() error
}

// ExitError represents a command that ran but exited with a non-zero status.
type ExitError struct {
	Status int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Status)
}
