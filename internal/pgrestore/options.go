package pgrestore

import (
	"io"

	"github.com/zorak1103/restorekit/internal/archive"
	"github.com/zorak1103/restorekit/internal/database"
	"github.com/zorak1103/restorekit/internal/docker"
	"github.com/zorak1103/restorekit/internal/reentry"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DockerFactory creates a Docker client for the daemon at host.
type DockerFactory func(host string) (docker.Client, error)

// Options configure a run. The zero value runs the built-in engine against
// the process standard streams on the package boundary.
type Options struct {
	Boundary        *reentry.Boundary
	Engine          archive.Engine
	Stdin           io.Reader
	Stdout          io.Writer
	Connector       database.Connector
	DockerHost      string
	NewDockerClient DockerFactory
	CleanupCapacity int
	Printer         *message.Printer
}

// Option sets a field of Options.
type Option func(*Options)

// WithBoundary runs on b instead of the package boundary.
func WithBoundary(b *reentry.Boundary) Option {
	return func(o *Options) { o.Boundary = b }
}

// WithEngine replaces the built-in archive engine.
func WithEngine(e archive.Engine) Option {
	return func(o *Options) { o.Engine = e }
}

// WithStdio sets the streams the built-in engine reads archives from and
// writes scripts to.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(o *Options) {
		o.Stdin = in
		o.Stdout = out
	}
}

// WithConnector sets the database connector of the built-in engine.
func WithConnector(c database.Connector) Option {
	return func(o *Options) { o.Connector = c }
}

// WithDocker sets the Docker daemon used by --container and, when factory is
// not nil, how clients for it are created.
func WithDocker(host string, factory DockerFactory) Option {
	return func(o *Options) {
		o.DockerHost = host
		if factory != nil {
			o.NewDockerClient = factory
		}
	}
}

// WithCleanupCapacity limits the number of pending finalizers;
// 0 selects the default and a negative value removes the limit.
func WithCleanupCapacity(n int) Option {
	return func(o *Options) { o.CleanupCapacity = n }
}

// WithLocale localizes diagnostics through Messages.
func WithLocale(tag language.Tag) Option {
	return func(o *Options) { o.Printer = NewPrinter(tag) }
}

func newOptions(opts []Option) *Options {
	o := &Options{
		Boundary:        std,
		NewDockerClient: docker.NewClient,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Engine == nil {
		o.Engine = &archive.Builtin{
			Stdin:     o.Stdin,
			Stdout:    o.Stdout,
			Connector: o.Connector,
		}
	}
	return o
}
