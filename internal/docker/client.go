// Package docker locates PostgreSQL servers that run in Docker containers.
package docker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/client"
)

// Common errors
var (
	ErrConnectionFailed = errors.New("docker connection failed")
	ErrNotFound         = errors.New("container not found")
)

// Client defines the Docker operations the resolver needs.
// All methods accept context.Context for cancellation and timeout support.
type Client interface {
	// Ping verifies the Docker daemon is accessible. Returns error if connection fails.
	Ping(ctx context.Context) error
	// Close closes the Docker client connection and releases resources.
	Close() error

	// InspectContainer returns the state and published ports of one
	// container, addressed by name or ID. A missing container yields an
	// error wrapping ErrNotFound.
	//
	// Example:
	//   ctr, err := client.InspectContainer(ctx, "shop-db")
	//   if err != nil {
	//       return fmt.Errorf("failed to inspect container: %w", err)
	//   }
	//   for _, b := range ctr.Ports["5432/tcp"] {
	//       fmt.Printf("published on %s:%s\n", b.HostIP, b.HostPort)
	//   }
	InspectContainer(ctx context.Context, nameOrID string) (Container, error)
}

// dockerClientWrapper wraps the Docker client to implement our interface
type dockerClientWrapper struct {
	cli        *client.Client
	socketPath string
}

// Compile-time verification that dockerClientWrapper implements Client
var _ Client = (*dockerClientWrapper)(nil)

// NewClient connects to the Docker daemon at socketPath (or default if empty).
func NewClient(socketPath string) (Client, error) {
	opts := []client.Opt{
		client.WithAPIVersionNegotiation(),
	}

	// Add host option if socket path is specified
	if socketPath != "" {
		opts = append(opts, client.WithHost(socketPath))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client for socket %s: %w", socketPath, err)
	}

	return &dockerClientWrapper{
		cli:        cli,
		socketPath: socketPath,
	}, nil
}

func (w *dockerClientWrapper) Ping(ctx context.Context) error {
	_, err := w.cli.Ping(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping Docker daemon at %s: %w", w.socketPath, err)
	}
	return nil
}

func (w *dockerClientWrapper) Close() error {
	return w.cli.Close()
}

func (w *dockerClientWrapper) InspectContainer(ctx context.Context, nameOrID string) (Container, error) {
	resp, err := w.cli.ContainerInspect(ctx, nameOrID)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return Container{}, fmt.Errorf("%w: %s", ErrNotFound, nameOrID)
		}
		return Container{}, fmt.Errorf("failed to inspect container %s: %w", nameOrID, err)
	}

	ctr := Container{
		ID:    resp.ID,
		Name:  strings.TrimPrefix(resp.Name, "/"),
		Ports: make(map[string][]PortBinding),
	}
	if resp.Config != nil {
		ctr.Image = resp.Config.Image
	}
	if resp.State != nil {
		ctr.State = resp.State.Status
		ctr.Running = resp.State.Running
	}
	if resp.NetworkSettings != nil {
		for port, bindings := range resp.NetworkSettings.Ports {
			for _, b := range bindings {
				ctr.Ports[string(port)] = append(ctr.Ports[string(port)], PortBinding{
					HostIP:   b.HostIP,
					HostPort: b.HostPort,
				})
			}
		}
	}

	return ctr, nil
}
