// Package pgrestore runs pg_restore as a subroutine of a long-lived host.
//
// Run takes the command line the standalone tool accepted and returns a
// reentry.Result instead of exiting; everything the tool would have printed
// to stderr ends up in the caller's transcript.
package pgrestore

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/zorak1103/restorekit/internal/archive"
	"github.com/zorak1103/restorekit/internal/diag"
	"github.com/zorak1103/restorekit/internal/docker"
	"github.com/zorak1103/restorekit/internal/reentry"
	"github.com/zorak1103/restorekit/internal/version"
)

// DefaultProgram is the program name used when argv is empty.
const DefaultProgram = "pg_restore"

// std is the boundary runs enter unless WithBoundary says otherwise.
var std = reentry.NewBoundary()

// Run executes one pg_restore invocation. argv[0] names the program for
// diagnostics; capture receives them and may be nil.
//
// The returned error is reentry.ErrActive when another run is in progress on
// the same boundary; every outcome of the restore itself is in the Result.
func Run(ctx context.Context, argv []string, capture *diag.Transcript, opts ...Option) (reentry.Result, error) {
	o := newOptions(opts)
	if len(argv) == 0 {
		argv = []string{DefaultProgram}
	}

	inv := reentry.Invocation{
		Program:         ProgName(argv[0]),
		Capture:         capture,
		CleanupCapacity: o.CleanupCapacity,
		Printer:         o.Printer,
	}
	d := &driver{argv: argv, opts: o}
	return o.Boundary.Run(ctx, inv, d.main)
}

// ProgName returns the program name for a path the way it is shown in
// diagnostics.
func ProgName(argv0 string) string {
	name := strings.TrimSuffix(filepath.Base(argv0), ".exe")
	if name == "" || name == "." || name == string(filepath.Separator) {
		return DefaultProgram
	}
	return name
}

// InputFile returns the archive operand of a command line, or "" when the
// archive is read from standard input or the command line is invalid.
func InputFile(argv []string) string {
	if len(argv) < 2 {
		return ""
	}
	r := reentry.NewDetachedRun(ProgName(argv[0]), nil)
	_, input, err := parseArgs(r, argv)
	if err != nil {
		return ""
	}
	return input
}

type driver struct {
	argv []string
	opts *Options
}

func (d *driver) main(ctx context.Context, r *reentry.Run) error {
	if len(d.argv) > 1 {
		switch d.argv[1] {
		case "--help", "-?":
			usage(r)
			return r.Exit(1)
		case "--version", "-V":
			r.Emit("", "%s\n", version.GetPGRestoreVersion())
			return r.Exit(1)
		}
	}

	ro, input, err := parseArgs(r, d.argv)
	if err != nil {
		return err
	}

	r.SetVerbose(ro.Verbose)
	r.SetExitOnError(ro.ExitOnError)

	if ro.Container != "" {
		if err := d.resolveContainer(ctx, r, ro); err != nil {
			return err
		}
	}

	a, err := d.opts.Engine.Open(ctx, r, input, ro.Format)
	if err != nil {
		return err
	}
	if err := r.OnExit("close archive", func(int) { _ = a.Close() }); err != nil {
		_ = a.Close()
		return err
	}

	if ro.TOCFile != "" {
		sorter, ok := a.(archive.TOCSorter)
		if !ok {
			return r.Fatal("", "cannot use a list file (%s) with this archive engine\n", ro.TOCFile)
		}
		if err := sorter.SortTOCFromFile(ctx, ro); err != nil {
			return err
		}
	}

	if ro.TOCSummary {
		err = a.PrintTOCSummary(ctx, ro)
	} else {
		err = a.Restore(ctx, ro)
	}
	if err != nil {
		return err
	}

	if n := r.Errors(); n > 0 {
		r.Emit("", "WARNING: errors ignored on restore: %d\n", n)
	}

	return a.Close()
}

// resolveContainer points the connection options at the host port the
// container publishes for PostgreSQL.
func (d *driver) resolveContainer(ctx context.Context, r *reentry.Run, ro *archive.RestoreOptions) error {
	cli, err := d.opts.NewDockerClient(d.opts.DockerHost)
	if err != nil {
		return r.Fatal("", "could not connect to Docker: %v\n", err)
	}
	if err := r.OnExit("close docker client", func(int) { _ = cli.Close() }); err != nil {
		_ = cli.Close()
		return err
	}
	if err := cli.Ping(ctx); err != nil {
		return r.Fatal("", "could not connect to Docker: %v\n", err)
	}

	ep, err := docker.NewResolver(cli).Endpoint(ctx, ro.Container, docker.DefaultPort)
	if err != nil {
		return r.Fatal("", "could not resolve container \"%s\": %v\n", ro.Container, err)
	}

	r.Verbosef("", "container %s publishes PostgreSQL on %s:%s\n", ro.Container, ep.Host, ep.Port)
	ro.Host = ep.Host
	ro.Port = ep.Port
	return nil
}
