package ssh

import (
	"context"
	"errors"
	"time"

	"ifttt-ssh/internal/action"
	"ifttt-ssh/internal/logging"
	"ifttt-ssh/internal/session"
)

// TestHostname is the reserved hostname IFTTT uses when validating the
// endpoint. Requests for it are acknowledged without any network activity.
const TestHostname = "testhost"

// Outcome is the result of an Execute call.
type Outcome struct {
	// Skipped is set for the test hostname; no command was run.
	Skipped bool

	// Output is the command's stdout.
	Output string

	// Stderr is the command's stderr.
	Stderr string

	// ExitStatus is the remote exit status. A non-zero status is not an error.
	ExitStatus int
}

// HostPolicy decides whether a target host may be contacted.
type HostPolicy interface {
	CheckHost(host string) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithHostPolicy installs a host policy consulted before dialing.
func WithHostPolicy(policy HostPolicy) Option {
	return func(e *Executor) {
		e.policy = policy
	}
}

// WithSessionManager sets the session tracker. Without it sessions are
// tracked by an unlimited manager private to the executor.
func WithSessionManager(sessions *session.Manager) Option {
	return func(e *Executor) {
		e.sessions = sessions
	}
}

// Executor runs one command per call on a fresh connection.
type Executor struct {
	dialer   Dialer
	sessions *session.Manager
	policy   HostPolicy
}

// NewExecutor creates an executor that opens connections with dialer.
func NewExecutor(dialer Dialer, opts ...Option) *Executor {
	e := &Executor{dialer: dialer}
	for _, opt := range opts {
		opt(e)
	}
	if e.sessions == nil {
		e.sessions = session.NewManager(0)
	}
	return e
}

// Execute connects to the requested host, runs the command and disconnects.
// The connection, once opened, is closed on every return path. Failures are
// returned as *ExecutionError.
func (e *Executor) Execute(ctx context.Context, req action.Request) (Outcome, error) {
	logger := logging.FromContext(ctx).With().
		Str("component", "executor").
		Str("host", req.Hostname).
		Int("port", req.Port).
		Str("user", req.Username).
		Logger()

	if req.Hostname == TestHostname {
		logger.Info().Msg("test host, skipping command")
		return Outcome{Skipped: true}, nil
	}

	if e.policy != nil {
		if err := e.policy.CheckHost(req.Hostname); err != nil {
			return Outcome{}, &ExecutionError{Op: OpPolicy, Err: err}
		}
	}

	if limit := e.sessions.Limit(); limit > 0 && int64(e.sessions.Count()) >= limit {
		logger.Debug().Int64("limit", limit).Msg("waiting for a session slot")
	}
	sess, err := e.sessions.Acquire(ctx, req.Hostname, req.Username)
	if err != nil {
		return Outcome{}, &ExecutionError{Op: OpAcquire, Err: err}
	}
	defer func() {
		if err := e.sessions.Release(sess.ID); err != nil {
			logger.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to release session")
		}
	}()
	logger = logger.With().Str("session_id", sess.ID).Logger()
	logger.Debug().
		Int("in_flight", e.sessions.Count()).
		Int64("limit", e.sessions.Limit()).
		Msg("session acquired")

	start := time.Now()
	logger.Debug().Msg("connecting")
	conn, err := e.dialer.Dial(ctx, Target{
		Host:     req.Hostname,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		logger.Debug().Err(err).Msg("connect failed")
		return Outcome{}, &ExecutionError{Op: OpConnect, Err: err}
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug().Err(err).Msg("close failed")
		}
		logger.Debug().Msg("disconnected")
	}()

	logger.Debug().Str("command", logging.Redact(req.Command)).Msg("executing")
	stdout, stderr, err := conn.Run(ctx, req.Command)

	outcome := Outcome{
		Output: string(stdout),
		Stderr: string(stderr),
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitStatus = exitErr.Status
		err = nil
	}
	if err != nil {
		logger.Debug().Err(err).Msg("command failed")
		return Outcome{}, &ExecutionError{Op: OpRun, Err: err}
	}

	logger.Info().
		Str("result", outcome.Output).
		Int("exit_status", outcome.ExitStatus).
		Dur("duration", time.Since(start)).
		Msg("command executed")
	if outcome.Stderr != "" {
		logger.Debug().Str("stderr", outcome.Stderr).Msg("command stderr")
	}

	return outcome, nil
}
