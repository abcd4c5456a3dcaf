package archive

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/zorak1103/restorekit/internal/database"
	"github.com/zorak1103/restorekit/internal/reentry"
)

// Restore implements Archive.
func (a *archive) Restore(ctx context.Context, opts *RestoreOptions) error {
	if err := a.checkOpen(); err != nil {
		return err
	}

	if opts.Selective() || opts.Sections != SectionAll || opts.DataOnly || opts.SchemaOnly {
		a.run.Verbosef(moduleArchiver, "object selection is not supported by this engine; restoring all %d entries\n",
			len(a.entries))
	}

	if opts.UseDB {
		return a.restoreDatabase(ctx, opts)
	}
	return a.restoreScript(opts)
}

func (a *archive) restoreScript(opts *RestoreOptions) error {
	out, err := a.openOutput(opts)
	if err != nil {
		return err
	}

	p := &printer{w: out}
	p.printf("--\n-- Restored from archive %s\n--\n\n", a.name())
	if opts.SingleTxn {
		p.printf("BEGIN;\n\n")
	}
	if opts.Role != "" {
		p.printf("%s;\n\n", database.SetRole(opts.Role))
	}
	if p.err != nil {
		return a.writeFailed(p.err)
	}

	for _, e := range a.entries {
		body, err := a.body(e)
		if err != nil {
			if err := a.run.ReportError(moduleArchiver, "could not read entry %d (%s): %v\n", e.ID, e.Name, err); err != nil {
				return err
			}
			continue
		}

		a.run.Verbosef(moduleArchiver, "processing item %d %s\n", e.ID, e.Name)
		p.printf("--\n-- Entry %d: %s\n--\n\n", e.ID, e.Name)
		p.write(body)
		p.printf("\n\n")
		if p.err != nil {
			return a.writeFailed(p.err)
		}
	}

	if opts.SingleTxn {
		p.printf("COMMIT;\n")
	}
	if p.err != nil {
		return a.writeFailed(p.err)
	}
	return a.closeOutput(out)
}

// outputFile closes at most once: explicitly at the end of a restore or from
// the run's finalizer when the run ends early.
type outputFile struct {
	*os.File
	once sync.Once
	err  error
}

func (o *outputFile) Close() error {
	o.once.Do(func() { o.err = o.File.Close() })
	return o.err
}

// openOutput returns the script target: the file named by opts, or the
// engine's standard output.
func (a *archive) openOutput(opts *RestoreOptions) (io.Writer, error) {
	if opts.OutputFile == "" || opts.OutputFile == "-" {
		return a.stdout, nil
	}

	f, err := os.Create(opts.OutputFile)
	if err != nil {
		return nil, a.run.Fatal(moduleArchiver, "could not open output file \"%s\": %v\n", opts.OutputFile, err)
	}
	out := &outputFile{File: f}
	if err := a.run.OnExit("close output file", func(int) { _ = out.Close() }); err != nil {
		_ = out.Close()
		return nil, err
	}
	return out, nil
}

func (a *archive) closeOutput(w io.Writer) error {
	out, ok := w.(*outputFile)
	if !ok {
		return nil
	}
	if err := out.Close(); err != nil {
		return a.run.Fatal(moduleArchiver, "could not close output file: %v\n", err)
	}
	return nil
}

func connParams(opts *RestoreOptions) database.Params {
	return database.Params{
		Host:     opts.Host,
		Port:     opts.Port,
		User:     opts.Username,
		DBName:   opts.DBName,
		Password: opts.Password,
		Role:     opts.Role,
	}
}

func (a *archive) restoreDatabase(ctx context.Context, opts *RestoreOptions) error {
	params := connParams(opts)
	if opts.Jobs > 1 && !opts.SingleTxn && len(a.entries) > 1 {
		return a.restoreParallel(ctx, opts.Jobs, params)
	}

	conn, err := a.connect(ctx, a.run, params)
	if err != nil {
		return err
	}

	if opts.SingleTxn {
		if err := conn.Exec(ctx, "BEGIN"); err != nil {
			return a.run.Fatal(moduleDB, "could not start transaction: %v\n", err)
		}
	}

	for _, e := range a.entries {
		if err := a.apply(ctx, a.run, conn, e); err != nil {
			return err
		}
	}

	if opts.SingleTxn {
		if err := conn.Exec(ctx, "COMMIT"); err != nil {
			return a.run.Fatal(moduleDB, "could not commit transaction: %v\n", err)
		}
	}

	if err := conn.Close(ctx); err != nil {
		a.run.Verbosef(moduleDB, "closing connection: %v\n", err)
	}
	return nil
}

// connect opens a session for r and registers its close with r's finalizers.
func (a *archive) connect(ctx context.Context, r *reentry.Run, params database.Params) (database.Conn, error) {
	r.Verbosef(moduleDB, "connecting to database for restore\n")

	conn, err := a.connector.Connect(ctx, params)
	if err != nil {
		return nil, r.Fatal(moduleDB, "connection to database \"%s\" failed: %v\n", params.DBName, err)
	}
	if err := r.OnExit("close database connection", func(int) {
		_ = conn.Close(context.Background())
	}); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return conn, nil
}

// apply restores one entry through conn. Failures are non-fatal unless the
// run escalates them.
func (a *archive) apply(ctx context.Context, r *reentry.Run, conn database.Conn, e Entry) error {
	body, err := a.body(e)
	if err != nil {
		return r.ReportError(moduleArchiver, "could not read entry %d (%s): %v\n", e.ID, e.Name, err)
	}

	r.Verbosef(moduleArchiver, "processing item %d %s\n", e.ID, e.Name)
	if err := conn.Exec(ctx, string(body)); err != nil {
		return r.ReportError(moduleDB, "error from TOC entry %d; %s: %v\n", e.ID, e.Name, err)
	}
	return nil
}
