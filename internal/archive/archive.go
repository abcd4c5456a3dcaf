// Package archive is the restore engine behind the pg_restore driver.
//
// The built-in engine understands directory and tar archives whose members
// are plain SQL files. It restores every member, in archive order, either to
// a SQL script or into a database. Fatal conditions end the run through the
// reentry.Run the archive was opened with; per-entry failures are reported as
// non-fatal errors.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zorak1103/restorekit/internal/database"
	"github.com/zorak1103/restorekit/internal/reentry"
)

const (
	moduleArchiver = "archiver"
	moduleDB       = "archiver (db)"
)

// Entry is one restorable member of an archive.
type Entry struct {
	ID   int
	Name string
	Size int64
}

// Archive is an opened archive.
type Archive interface {
	Format() Format
	Entries() []Entry
	// PrintTOCSummary writes the table of contents to the output target
	// selected by opts.
	PrintTOCSummary(ctx context.Context, opts *RestoreOptions) error
	// Restore applies every entry to the target selected by opts.
	Restore(ctx context.Context, opts *RestoreOptions) error
	// Close releases the archive. Closing twice is harmless.
	Close() error
}

// TOCSorter is implemented by archives that can reorder their entries from a
// list file (pg_restore -L).
type TOCSorter interface {
	SortTOCFromFile(ctx context.Context, opts *RestoreOptions) error
}

// Engine opens archives for a run.
type Engine interface {
	Open(ctx context.Context, r *reentry.Run, path string, format Format) (Archive, error)
}

// Builtin is the built-in engine. Zero fields select the process standard
// streams and a pgx connector.
type Builtin struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Connector database.Connector
}

func (b *Builtin) stdin() io.Reader {
	if b.Stdin == nil {
		return os.Stdin
	}
	return b.Stdin
}

func (b *Builtin) stdout() io.Writer {
	if b.Stdout == nil {
		return os.Stdout
	}
	return b.Stdout
}

func (b *Builtin) connector() database.Connector {
	if b.Connector == nil {
		return database.PgxConnector{}
	}
	return b.Connector
}

type archive struct {
	run       *reentry.Run
	format    Format
	path      string // empty for standard input
	entries   []Entry
	source    memberSource
	stdout    io.Writer
	connector database.Connector
	closed    bool
}

func (a *archive) Format() Format {
	return a.format
}

func (a *archive) Entries() []Entry {
	entries := make([]Entry, len(a.entries))
	copy(entries, a.entries)
	return entries
}

func (a *archive) Close() error {
	a.closed = true
	a.source = nil
	return nil
}

func (a *archive) name() string {
	if a.path == "" {
		return "(standard input)"
	}
	return a.path
}

func (a *archive) checkOpen() error {
	if a.closed {
		return a.run.Fatal(moduleArchiver, "archive \"%s\" is already closed\n", a.name())
	}
	return nil
}

func (a *archive) PrintTOCSummary(_ context.Context, opts *RestoreOptions) error {
	if err := a.checkOpen(); err != nil {
		return err
	}

	out, err := a.openOutput(opts)
	if err != nil {
		return err
	}

	var total int64
	for _, e := range a.entries {
		total += e.Size
	}

	p := &printer{w: out}
	p.printf(";\n; Archive: %s\n", a.name())
	p.printf(";     Format: %s\n", a.format)
	p.printf(";     TOC Entries: %d\n", len(a.entries))
	p.printf(";     Total Size: %d bytes\n", total)
	p.printf(";\n;\n; Selected TOC Entries:\n;\n")
	for _, e := range a.entries {
		p.printf("%d; %s (%d bytes)\n", e.ID, e.Name, e.Size)
	}
	if p.err != nil {
		return a.writeFailed(p.err)
	}
	return a.closeOutput(out)
}

func (a *archive) writeFailed(err error) error {
	return a.run.Fatal(moduleArchiver, "could not write to output file: %v\n", err)
}

// printer remembers the first write error so a sequence of writes can be
// checked once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) write(b []byte) {
	if p.err != nil {
		return
	}
	_, p.err = p.w.Write(b)
}
