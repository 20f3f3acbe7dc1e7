package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// NativeDialer connects with golang.org/x/crypto/ssh using password
// authentication.
type NativeDialer struct {
	// Timeout bounds the TCP dial and SSH handshake. Zero means no timeout.
	Timeout time.Duration

	// KnownHostsPath enables host key verification when set. Otherwise any
	// host key is accepted.
	KnownHostsPath string
}

// Dial establishes a new SSH connection to the target
func (d *NativeDialer) Dial(ctx context.Context, target Target) (Conn, error) {
	hostKeyCallback, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User: target.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(target.Password),
			ssh.KeyboardInteractive(passwordChallenge(target.Password)),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.Timeout,
	}

	addr := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))

	netDialer := net.Dialer{Timeout: d.Timeout}
	netConn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if d.Timeout > 0 {
		_ = netConn.SetDeadline(time.Now().Add(d.Timeout))
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("failed to establish SSH session with %s: %w", addr, err)
	}

	if d.Timeout > 0 {
		_ = netConn.SetDeadline(time.Time{})
	}

	return &nativeConn{client: ssh.NewClient(clientConn, chans, reqs)}, nil
}

func (d *NativeDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.KnownHostsPath == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	callback, err := knownhosts.New(d.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}
	return callback, nil
}

// passwordChallenge answers every keyboard-interactive prompt with the password.
func passwordChallenge(password string) ssh.KeyboardInteractiveChallenge {
	return func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = password
		}
		return answers, nil
	}
}

type nativeConn struct {
	client *ssh.Client
}

// Run executes a command in a fresh SSH session
func (c *nativeConn) Run(ctx context.Context, command string) ([]byte, []byte, error) {
	sshSession, err := c.client.NewSession()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer sshSession.Close()

	var stdout, stderr bytes.Buffer
	sshSession.Stdout = &stdout
	sshSession.Stderr = &stderr

	errCh := make(chan error, 1)
	go func() {
		errCh <- sshSession.Run(command)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				return stdout.Bytes(), stderr.Bytes(), &ExitError{Status: exitErr.ExitStatus()}
			}
			return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("command execution failed: %w", err)
		}
		return stdout.Bytes(), stderr.Bytes(), nil
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("command execution aborted: %w", ctx.Err())
	}
}

// Close closes the underlying SSH client
func (c *nativeConn) Close() error {
	return c.client.Close()
}
