package docker

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/go-connections/nat"
	apperrors "github.com/zorak1103/restorekit/internal/errors"
)

// DefaultPort is the container port PostgreSQL listens on.
const DefaultPort = "5432/tcp"

// Resolver errors
var (
	ErrNotRunning       = errors.New("container is not running")
	ErrPortNotPublished = errors.New("port is not published")
)

// Resolver maps a container to the host address its database is reachable on.
type Resolver struct {
	cli Client
}

// NewResolver creates a resolver using cli.
func NewResolver(cli Client) *Resolver {
	return &Resolver{cli: cli}
}

// Endpoint returns the host address of port (default DefaultPort) published
// by container. Wildcard host addresses resolve to the loopback address.
func (r *Resolver) Endpoint(ctx context.Context, container, port string) (Endpoint, error) {
	if port == "" {
		port = DefaultPort
	}
	proto, portNum := nat.SplitProtoPort(port)
	key, err := nat.NewPort(proto, portNum)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid container port %q: %w", port, err)
	}

	ctr, err := r.cli.InspectContainer(ctx, container)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Endpoint{}, err
		}
		return Endpoint{}, &apperrors.DockerConnectionError{Operation: "ContainerInspect", Err: err}
	}
	if !ctr.Running {
		return Endpoint{}, fmt.Errorf("%w: %s (%s)", ErrNotRunning, container, ctr.State)
	}

	for _, b := range ctr.Ports[string(key)] {
		if b.HostPort == "" {
			continue
		}
		host := b.HostIP
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		return Endpoint{Host: host, Port: b.HostPort}, nil
	}

	return Endpoint{}, fmt.Errorf("%w: %s on container %s", ErrPortNotPublished, key, container)
}
