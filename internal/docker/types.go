package docker

// Container represents a Docker container with relevant metadata
type Container struct {
	ID      string
	Name    string
	State   string // running, exited, etc.
	Image   string
	Running bool
	Ports   map[string][]PortBinding // keyed by "<port>/<proto>"
}

// PortBinding is one host address a container port is published on.
type PortBinding struct {
	HostIP   string
	HostPort string
}

// Endpoint is the host address of a published container port.
type Endpoint struct {
	Host string
	Port string
}
