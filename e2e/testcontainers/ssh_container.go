package testcontainers

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Credentials is the password login baked into the image at build time.
type Credentials struct {
	Username string
	Password string
}

// DefaultCredentials matches the Dockerfile defaults.
var DefaultCredentials = Credentials{Username: "testuser", Password: "password"}

// SSHContainer is an OpenSSH server accepting one password login.
type SSHContainer struct {
	Container   testcontainers.Container
	Host        string
	Port        int
	Credentials Credentials
}

// StartSSHContainer builds the image with creds and starts it.
func StartSSHContainer(ctx context.Context, creds Credentials) (*SSHContainer, error) {
	dockerfilePath, err := filepath.Abs("testcontainers/Dockerfile")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Dockerfile: %w", err)
	}

	req := testcontainers.ContainerRequest{
		FromDockerfile: testcontainers.FromDockerfile{
			Context:    filepath.Dir(dockerfilePath),
			Dockerfile: "Dockerfile",
			BuildArgs: map[string]*string{
				"SSH_USER":     &creds.Username,
				"SSH_PASSWORD": &creds.Password,
			},
		},
		ExposedPorts: []string{"22/tcp"},
		WaitingFor:   wait.ForListeningPort("22/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "22/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	return &SSHContainer{
		Container:   container,
		Host:        host,
		Port:        mappedPort.Int(),
		Credentials: creds,
	}, nil
}

// ActionFields returns the IFTTT actionFields that run command on this
// container with the given password.
func (c *SSHContainer) ActionFields(password, command string) map[string]string {
	return map[string]string{
		"hostname": c.Host,
		"port":     strconv.Itoa(c.Port),
		"username": c.Credentials.Username,
		"password": password,
		"command":  command,
	}
}

// ReadFile reads path inside the container without going through SSH.
func (c *SSHContainer) ReadFile(ctx context.Context, path string) (string, error) {
	code, output, err := c.Container.Exec(ctx, []string{"cat", path}, tcexec.Multiplexed())
	if err != nil {
		return "", fmt.Errorf("failed to exec in container: %w", err)
	}
	data, err := io.ReadAll(output)
	if err != nil {
		return "", fmt.Errorf("failed to read exec output: %w", err)
	}
	if code != 0 {
		return "", fmt.Errorf("cat %s exited with %d: %s", path, code, data)
	}
	return string(data), nil
}

// Stop terminates the container.
func (c *SSHContainer) Stop(ctx context.Context) error {
	return c.Container.Terminate(ctx)
}
