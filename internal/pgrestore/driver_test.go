package pgrestore

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorak1103/restorekit/internal/archive"
	"github.com/zorak1103/restorekit/internal/diag"
	"github.com/zorak1103/restorekit/internal/docker"
	"github.com/zorak1103/restorekit/internal/reentry"
	"golang.org/x/text/language"
)

// fakeEngine hands out a fakeArchive and records how it was opened.
type fakeEngine struct {
	archive   *fakeArchive
	failOpen  bool
	path      string
	format    archive.Format
	onOpen    func()
	openCalls int
}

func (e *fakeEngine) Open(_ context.Context, r *reentry.Run, path string, format archive.Format) (archive.Archive, error) {
	e.openCalls++
	e.path = path
	e.format = format
	if e.onOpen != nil {
		e.onOpen()
	}
	if e.failOpen {
		return nil, r.Fatal("archiver", "could not open input file \"%s\": no such file\n", path)
	}
	if e.archive == nil {
		e.archive = &fakeArchive{}
	}
	e.archive.run = r
	return e.archive, nil
}

type fakeArchive struct {
	run          *reentry.Run
	failEntries  int
	restoredWith *archive.RestoreOptions
	listed       bool
	closed       bool
}

func (a *fakeArchive) Format() archive.Format  { return archive.FormatTar }
func (a *fakeArchive) Entries() []archive.Entry { return nil }

func (a *fakeArchive) PrintTOCSummary(context.Context, *archive.RestoreOptions) error {
	a.listed = true
	return nil
}

func (a *fakeArchive) Restore(_ context.Context, opts *archive.RestoreOptions) error {
	a.restoredWith = opts
	for i := 1; i <= a.failEntries; i++ {
		if err := a.run.ReportError("archiver (db)", "could not execute entry %d\n", i); err != nil {
			return err
		}
	}
	return nil
}

func (a *fakeArchive) Close() error {
	a.closed = true
	return nil
}

type sortingArchive struct {
	fakeArchive
	sortedFrom string
}

func (a *sortingArchive) SortTOCFromFile(_ context.Context, opts *archive.RestoreOptions) error {
	a.sortedFrom = opts.TOCFile
	return nil
}

type sortingEngine struct {
	archive *sortingArchive
}

func (e *sortingEngine) Open(_ context.Context, r *reentry.Run, _ string, _ archive.Format) (archive.Archive, error) {
	e.archive.run = r
	return e.archive, nil
}

func run(t *testing.T, argv []string, opts ...Option) (reentry.Result, string) {
	t.Helper()
	capture := &diag.Transcript{}
	opts = append([]Option{WithBoundary(reentry.NewBoundary())}, opts...)
	res, err := Run(context.Background(), argv, capture, opts...)
	require.NoError(t, err)
	return res, capture.String()
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"--help", "-?"} {
		t.Run(flag, func(t *testing.T) {
			t.Parallel()
			engine := &fakeEngine{}
			res, out := run(t, []string{"pg_restore", flag}, WithEngine(engine))

			assert.Equal(t, reentry.StatusAborted, res.Status)
			assert.Equal(t, 1, res.Code)
			assert.Contains(t, out, "pg_restore: pg_restore restores a PostgreSQL database from an archive created by pg_dump.\n")
			assert.Contains(t, out, "pg_restore:   pg_restore [OPTION]... [FILE]\n")
			assert.Contains(t, out, "--single-transaction")
			assert.NotContains(t, out, "%!")
			assert.Zero(t, engine.openCalls)
		})
	}
}

func TestRun_HelpNotFirst(t *testing.T) {
	t.Parallel()

	res, out := run(t, []string{"pg_restore", "-v", "--help"}, WithEngine(&fakeEngine{}))
	assert.Equal(t, reentry.StatusAborted, res.Status)
	assert.Contains(t, out, "Usage:\n")
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"--version", "-V"} {
		t.Run(flag, func(t *testing.T) {
			t.Parallel()
			res, out := run(t, []string{"/usr/lib/postgresql/bin/pg_restore", flag}, WithEngine(&fakeEngine{}))

			assert.Equal(t, reentry.StatusAborted, res.Status)
			assert.Equal(t, 1, res.ExitCode())
			assert.Equal(t, "pg_restore: pg_restore (PostgreSQL) 9.2\n", out)
		})
	}
}

func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{
			name: "unknown long option",
			argv: []string{"tool", "--bogus"},
			want: []string{
				"tool: unrecognized option: --bogus\n",
				"tool: Try \"tool --help\" for more information.\n",
			},
		},
		{
			name: "unknown short option",
			argv: []string{"tool", "-k"},
			want: []string{"tool: invalid option -- 'k'\n"},
		},
		{
			name: "missing argument",
			argv: []string{"tool", "--dbname"},
			want: []string{"tool: flag needs an argument", "Try \"tool --help\""},
		},
		{
			name: "bad jobs value",
			argv: []string{"tool", "-j", "many"},
			want: []string{"invalid argument \"many\"", "Try \"tool --help\""},
		},
		{
			name: "too many arguments",
			argv: []string{"tool", "one.tar", "two.tar"},
			want: []string{
				"tool: too many command-line arguments (first is \"two.tar\")\n",
				"tool: Try \"tool --help\" for more information.\n",
			},
		},
		{
			name: "dbname with file",
			argv: []string{"tool", "-d", "shop", "-f", "out.sql", "dump.tar"},
			want: []string{
				"tool: options -d/--dbname and -f/--file cannot be used together\n",
				"tool: Try \"tool --help\" for more information.\n",
			},
		},
		{
			name: "single transaction with jobs",
			argv: []string{"tool", "-1", "-j", "4", "-d", "shop", "dump.tar"},
			want: []string{"tool: cannot specify both --single-transaction and multiple jobs\n"},
		},
		{
			name: "unknown section",
			argv: []string{"tool", "--section", "data", "--section", "indexes", "dump.tar"},
			want: []string{
				"tool: unrecognized section name: \"indexes\"\n",
				"tool: Try \"tool --help\" for more information.\n",
			},
		},
		{
			name: "unknown format",
			argv: []string{"tool", "-F", "plain", "dump.sql"},
			want: []string{"tool: unrecognized archive format \"plain\"; please specify \"c\", \"d\", or \"t\"\n"},
		},
		{
			name: "host with container",
			argv: []string{"tool", "-h", "db", "--container", "shop-db", "-d", "shop"},
			want: []string{"tool: options -h/--host and --container cannot be used together\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := &fakeEngine{}
			res, out := run(t, tt.argv, WithEngine(engine))

			assert.Equal(t, reentry.StatusAborted, res.Status)
			assert.Equal(t, 1, res.Code)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
			assert.Zero(t, engine.openCalls, "nothing may be opened after a usage error")
		})
	}
}

func TestRun_PassesOptions(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	res, out := run(t, []string{
		"pg_restore",
		"-d", "shop", "-h", "db.internal", "-p", "5433", "-U", "restore", "-w", "secret",
		"--role", "owner", "-1", "-n", "public", "-n", "audit", "-t", "items",
		"--section", "data", "--section", "post-data", "-F", "Tar", "-O", "-x", "-i", "-R", "-W",
		"dump.tar", "-c",
	}, WithEngine(engine))

	require.Equal(t, reentry.StatusSuccess, res.Status, out)
	assert.Equal(t, "dump.tar", engine.path)
	assert.Equal(t, archive.FormatTar, engine.format)

	o := engine.archive.restoredWith
	require.NotNil(t, o)
	assert.True(t, o.UseDB)
	assert.Equal(t, "shop", o.DBName)
	assert.Equal(t, "db.internal", o.Host)
	assert.Equal(t, "5433", o.Port)
	assert.Equal(t, "restore", o.Username)
	assert.Equal(t, "secret", o.Password)
	assert.Equal(t, "owner", o.Role)
	assert.True(t, o.SingleTxn)
	assert.True(t, o.ExitOnError, "-1 implies exit on error")
	assert.True(t, o.Clean)
	assert.True(t, o.NoOwner)
	assert.True(t, o.NoPrivileges)
	assert.Equal(t, []string{"public", "audit"}, o.Schemas)
	assert.Equal(t, []string{"items"}, o.Tables)
	assert.Equal(t, archive.SectionData|archive.SectionPostData, o.Sections)
	assert.True(t, engine.archive.closed)
	assert.Empty(t, out)
}

func TestRun_ListMode(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	res, _ := run(t, []string{"pg_restore", "-l", "dump.tar"}, WithEngine(engine))

	assert.Equal(t, reentry.StatusSuccess, res.Status)
	assert.True(t, engine.archive.listed)
	assert.Nil(t, engine.archive.restoredWith)
}

func TestRun_ErrorsIgnored(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{archive: &fakeArchive{failEntries: 3}}
	res, out := run(t, []string{"pg_restore", "-d", "shop", "dump.tar"}, WithEngine(engine))

	assert.Equal(t, reentry.StatusCompletedWithErrors, res.Status)
	assert.Equal(t, 3, res.Errors)
	assert.Equal(t, 1, res.ExitCode())
	assert.Contains(t, out, "pg_restore: [archiver (db)]: could not execute entry 3\n")
	assert.Contains(t, out, "pg_restore: WARNING: errors ignored on restore: 3\n")
	assert.True(t, engine.archive.closed)
}

func TestRun_ExitOnError(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{archive: &fakeArchive{failEntries: 3}}
	res, out := run(t, []string{"pg_restore", "-e", "-d", "shop", "dump.tar"}, WithEngine(engine))

	assert.Equal(t, reentry.StatusAborted, res.Status)
	assert.Equal(t, 1, res.Errors)
	assert.NotContains(t, out, "could not execute entry 2")
	assert.NotContains(t, out, "WARNING: errors ignored")
	assert.True(t, engine.archive.closed, "the close-archive finalizer runs on abort")
}

func TestRun_OpenFailure(t *testing.T) {
	t.Parallel()

	res, out := run(t, []string{"pg_restore", "missing.tar"}, WithEngine(&fakeEngine{failOpen: true}))

	assert.Equal(t, reentry.StatusAborted, res.Status)
	assert.Contains(t, out, "pg_restore: [archiver]: could not open input file \"missing.tar\"")
}

func TestRun_UseList(t *testing.T) {
	t.Parallel()

	t.Run("engine cannot sort", func(t *testing.T) {
		t.Parallel()
		engine := &fakeEngine{}
		res, out := run(t, []string{"pg_restore", "-L", "order.list", "dump.tar"}, WithEngine(engine))

		assert.Equal(t, reentry.StatusAborted, res.Status)
		assert.Contains(t, out, "cannot use a list file (order.list)")
		assert.True(t, engine.archive.closed)
	})

	t.Run("engine sorts", func(t *testing.T) {
		t.Parallel()
		engine := &sortingEngine{archive: &sortingArchive{}}
		res, _ := run(t, []string{"pg_restore", "-L", "order.list", "dump.tar"}, WithEngine(engine))

		assert.Equal(t, reentry.StatusSuccess, res.Status)
		assert.Equal(t, "order.list", engine.archive.sortedFrom)
		assert.NotNil(t, engine.archive.restoredWith)
	})
}

func TestRun_NestedRunRejected(t *testing.T) {
	t.Parallel()

	b := reentry.NewBoundary()
	var nestedErr error
	engine := &fakeEngine{}
	engine.onOpen = func() {
		_, nestedErr = Run(context.Background(), []string{"pg_restore", "-l"}, nil,
			WithBoundary(b), WithEngine(&fakeEngine{}))
	}

	res, err := Run(context.Background(), []string{"pg_restore", "dump.tar"}, nil, WithBoundary(b), WithEngine(engine))
	require.NoError(t, err)
	assert.Equal(t, reentry.StatusSuccess, res.Status)
	assert.ErrorIs(t, nestedErr, reentry.ErrActive)
	assert.False(t, b.Active())
}

func TestRun_NoCapture(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), []string{"pg_restore", "--bogus"}, nil,
		WithBoundary(reentry.NewBoundary()), WithEngine(&fakeEngine{}))
	require.NoError(t, err)
	assert.Equal(t, reentry.StatusAborted, res.Status)
}

func TestRun_EmptyArgv(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	res, _ := run(t, nil, WithEngine(engine))
	assert.Equal(t, reentry.StatusSuccess, res.Status)
	assert.Empty(t, engine.path, "no file reads standard input")
}

type mockDocker struct {
	containers map[string]docker.Container
	pingErr    error
	closed     bool
}

func (m *mockDocker) Ping(context.Context) error { return m.pingErr }

func (m *mockDocker) Close() error {
	m.closed = true
	return nil
}

func (m *mockDocker) InspectContainer(_ context.Context, name string) (docker.Container, error) {
	ctr, ok := m.containers[name]
	if !ok {
		return docker.Container{}, docker.ErrNotFound
	}
	return ctr, nil
}

func TestRun_Container(t *testing.T) {
	t.Parallel()

	cli := &mockDocker{containers: map[string]docker.Container{
		"shop-db": {
			Name:    "shop-db",
			State:   "running",
			Running: true,
			Ports:   map[string][]docker.PortBinding{"5432/tcp": {{HostIP: "0.0.0.0", HostPort: "55432"}}},
		},
	}}
	var gotHost string
	factory := func(host string) (docker.Client, error) {
		gotHost = host
		return cli, nil
	}

	t.Run("resolves host and port", func(t *testing.T) {
		engine := &fakeEngine{}
		res, out := run(t, []string{"pg_restore", "--container", "shop-db", "-d", "shop", "dump.tar"},
			WithEngine(engine), WithDocker("unix:///run/docker.sock", factory))

		require.Equal(t, reentry.StatusSuccess, res.Status, out)
		assert.Equal(t, "unix:///run/docker.sock", gotHost)
		assert.Equal(t, "127.0.0.1", engine.archive.restoredWith.Host)
		assert.Equal(t, "55432", engine.archive.restoredWith.Port)
		assert.True(t, cli.closed, "the docker client is closed when the run ends")
	})

	t.Run("unknown container", func(t *testing.T) {
		engine := &fakeEngine{}
		res, out := run(t, []string{"pg_restore", "--container", "billing-db", "-d", "billing", "dump.tar"},
			WithEngine(engine), WithDocker("", factory))

		assert.Equal(t, reentry.StatusAborted, res.Status)
		assert.Contains(t, out, "could not resolve container \"billing-db\": container not found")
		assert.Zero(t, engine.openCalls)
	})

	t.Run("docker unavailable", func(t *testing.T) {
		broken := func(string) (docker.Client, error) { return nil, errors.New("no daemon") }
		res, out := run(t, []string{"pg_restore", "--container", "shop-db", "dump.tar"},
			WithEngine(&fakeEngine{}), WithDocker("", broken))

		assert.Equal(t, reentry.StatusAborted, res.Status)
		assert.Contains(t, out, "could not connect to Docker: no daemon")
	})

	t.Run("daemon not answering", func(t *testing.T) {
		silent := &mockDocker{pingErr: errors.New("connection refused")}
		engine := &fakeEngine{}
		res, out := run(t, []string{"pg_restore", "--container", "shop-db", "dump.tar"},
			WithEngine(engine), WithDocker("", func(string) (docker.Client, error) { return silent, nil }))

		assert.Equal(t, reentry.StatusAborted, res.Status)
		assert.Contains(t, out, "could not connect to Docker: connection refused")
		assert.True(t, silent.closed)
		assert.Zero(t, engine.openCalls)
	})
}

func TestRun_BuiltinEngineFromStdin(t *testing.T) {
	t.Parallel()

	var archiveData bytes.Buffer
	tw := tar.NewWriter(&archiveData)
	body := "CREATE TABLE items (id int);"
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "001_items.sql", Mode: 0o600, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var stdout bytes.Buffer
	res, out := run(t, []string{"pg_restore", "-v"}, WithStdio(&archiveData, &stdout))

	require.Equal(t, reentry.StatusSuccess, res.Status, out)
	assert.Contains(t, stdout.String(), body)
	assert.Contains(t, out, "pg_restore: [archiver]: processing item 1 001_items.sql\n")
}

func TestRun_Localized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tag  language.Tag
		want string
	}{
		{
			name: "german",
			tag:  language.MustParse("de-DE"),
			want: "tool: Optionen -d/--dbname und -f/--file können nicht zusammen verwendet werden\n" +
				"tool: Versuchen Sie »tool --help« für weitere Informationen.\n",
		},
		{
			name: "no bundled translation",
			tag:  language.French,
			want: "tool: options -d/--dbname and -f/--file cannot be used together\n" +
				"tool: Try \"tool --help\" for more information.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, out := run(t, []string{"tool", "-d", "shop", "-f", "out.sql", "dump.tar"},
				WithEngine(&fakeEngine{}), WithLocale(tt.tag))
			assert.Equal(t, reentry.StatusAborted, res.Status)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestMessages_ModuleTitle(t *testing.T) {
	t.Parallel()

	p := NewPrinter(language.German)
	assert.Equal(t, "Archivierer (DB)", p.Sprintf("archiver (db)"))
	assert.Equal(t, "Fehler in Inhaltsverzeichniseintrag 3; items.sql: boom\n",
		p.Sprintf("error from TOC entry %d; %s: %v\n", 3, "items.sql", "boom"))
}

func TestProgName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"pg_restore":          "pg_restore",
		"/usr/bin/pg_restore": "pg_restore",
		"./bin/restore-tool":  "restore-tool",
		"pg_restore.exe":      "pg_restore",
		"":                    DefaultProgram,
		"/":                   DefaultProgram,
	}
	for in, want := range tests {
		assert.Equal(t, want, ProgName(in), in)
	}
}

func TestInputFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"operand last", []string{"pg_restore", "-d", "shop", "/backups/shop.tar"}, "/backups/shop.tar"},
		{"operand first", []string{"pg_restore", "dump", "-v"}, "dump"},
		{"password value is not the operand", []string{"pg_restore", "-w", "secret"}, ""},
		{"standard input", []string{"pg_restore", "-l"}, ""},
		{"invalid command line", []string{"pg_restore", "--bogus", "dump"}, ""},
		{"program only", []string{"pg_restore"}, ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InputFile(tt.argv))
		})
	}
}
