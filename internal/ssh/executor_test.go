package ssh

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifttt-ssh/internal/action"
	"ifttt-ssh/internal/logging"
	"ifttt-ssh/internal/session"
)

// fakeDialer records the connection lifecycle and returns configured results.
type fakeDialer struct {
	mu      sync.Mutex
	DialErr error
	Stdout  string
	Stderr  string
	RunErr  error
	events  []string
	targets []Target
	command string
}

func (d *fakeDialer) Dial(_ context.Context, target Target) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, "dial")
	d.targets = append(d.targets, target)
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	return &fakeConn{dialer: d}, nil
}

func (d *fakeDialer) record(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *fakeDialer) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

type fakeConn struct {
	dialer *fakeDialer
}

func (c *fakeConn) Run(_ context.Context, command string) ([]byte, []byte, error) {
	c.dialer.record("run")
	c.dialer.mu.Lock()
	c.dialer.command = command
	c.dialer.mu.Unlock()
	return []byte(c.dialer.Stdout), []byte(c.dialer.Stderr), c.dialer.RunErr
}

func (c *fakeConn) Close() error {
	c.dialer.record("close")
	return nil
}

type denyAll struct{}

func (denyAll) CheckHost(host string) error {
	return errors.New("host " + host + " is denied")
}

func testRequest(host string) action.Request {
	return action.Request{Hostname: host, Port: 22, Username: "deploy", Password: "secret", Command: "uptime"}
}

func TestExecute_Success(t *testing.T) {
	dialer := &fakeDialer{Stdout: "up 3 days"}
	sessions := session.NewManager(0)
	executor := NewExecutor(dialer, WithSessionManager(sessions))

	outcome, err := executor.Execute(context.Background(), testRequest("example.com"))
	require.NoError(t, err)

	assert.False(t, outcome.Skipped)
	assert.Equal(t, "up 3 days", outcome.Output)
	assert.Equal(t, []string{"dial", "run", "close"}, dialer.Events())
	assert.Equal(t, []Target{{Host: "example.com", Port: 22, Username: "deploy", Password: "secret"}}, dialer.targets)
	assert.Equal(t, "uptime", dialer.command)
	assert.Equal(t, 0, sessions.Count(), "session must be released")
}

func TestExecute_TestHostSkipsNetwork(t *testing.T) {
	dialer := &fakeDialer{}
	executor := NewExecutor(dialer, WithHostPolicy(denyAll{}))

	outcome, err := executor.Execute(context.Background(), testRequest(TestHostname))
	require.NoError(t, err)

	assert.True(t, outcome.Skipped)
	assert.Empty(t, dialer.Events())
}

func TestExecute_ConnectFailure(t *testing.T) {
	dialer := &fakeDialer{DialErr: errors.New("failed to connect to example.com:22: connection refused")}
	sessions := session.NewManager(1)
	executor := NewExecutor(dialer, WithSessionManager(sessions))

	_, err := executor.Execute(context.Background(), testRequest("example.com"))

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, OpConnect, execErr.Op)
	assert.Equal(t, "failed to connect to example.com:22: connection refused", err.Error())
	assert.Equal(t, []string{"dial"}, dialer.Events(), "nothing to close when dial failed")
	assert.Equal(t, 0, sessions.Count())
}

func TestExecute_RunFailureStillCloses(t *testing.T) {
	runErr := errors.New("command execution failed: channel closed")
	dialer := &fakeDialer{RunErr: runErr}
	executor := NewExecutor(dialer)

	_, err := executor.Execute(context.Background(), testRequest("example.com"))

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, OpRun, execErr.Op)
	assert.ErrorIs(t, err, runErr)
	assert.Equal(t, []string{"dial", "run", "close"}, dialer.Events())
}

func TestExecute_NonZeroExitIsNotFailure(t *testing.T) {
	dialer := &fakeDialer{Stdout: "out", Stderr: "boom", RunErr: &ExitError{Status: 2}}
	executor := NewExecutor(dialer)

	outcome, err := executor.Execute(context.Background(), testRequest("example.com"))
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.ExitStatus)
	assert.Equal(t, "out", outcome.Output)
	assert.Equal(t, "boom", outcome.Stderr)
	assert.Equal(t, []string{"dial", "run", "close"}, dialer.Events())
}

func TestExecute_PolicyDenied(t *testing.T) {
	dialer := &fakeDialer{}
	executor := NewExecutor(dialer, WithHostPolicy(denyAll{}))

	_, err := executor.Execute(context.Background(), testRequest("example.com"))

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, OpPolicy, execErr.Op)
	assert.Empty(t, dialer.Events())
}

func TestExecute_AcquireCancelled(t *testing.T) {
	sessions := session.NewManager(1)
	held, err := sessions.Acquire(context.Background(), "other", "u")
	require.NoError(t, err)
	defer sessions.Release(held.ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dialer := &fakeDialer{}
	executor := NewExecutor(dialer, WithSessionManager(sessions))

	_, err = executor.Execute(ctx, testRequest("example.com"))

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, OpAcquire, execErr.Op)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dialer.Events())
}

func TestExecute_LogsSessionUsage(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	var buf bytes.Buffer
	ctx := logging.WithContext(context.Background(), zerolog.New(&buf))

	sessions := session.NewManager(2)
	executor := NewExecutor(&fakeDialer{}, WithSessionManager(sessions))

	_, err := executor.Execute(ctx, testRequest("example.com"))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"message":"session acquired"`)
	assert.Contains(t, buf.String(), `"in_flight":1`)
	assert.Contains(t, buf.String(), `"limit":2`)
	assert.NotContains(t, buf.String(), "waiting for a session slot")
}

func TestExecutionError(t *testing.T) {
	cause := errors.New("boom")
	err := &ExecutionError{Op: OpRun, Err: cause}
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 127", (&ExitError{Status: 127}).Error())
}
