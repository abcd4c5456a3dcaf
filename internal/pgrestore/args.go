package pgrestore

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/zorak1103/restorekit/internal/archive"
	"github.com/zorak1103/restorekit/internal/reentry"
)

// parseArgs turns argv into restore options and the archive path. Every
// problem is reported through r and returned as an abort result.
func parseArgs(r *reentry.Run, argv []string) (*archive.RestoreOptions, string, error) {
	o := archive.NewRestoreOptions()

	var (
		formatName string
		sections   []string
		ignored    bool
	)

	fs := pflag.NewFlagSet(r.Program(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.SortFlags = false

	fs.BoolVarP(&o.DataOnly, "data-only", "a", false, "restore only the data, no schema")
	fs.BoolVarP(&o.Clean, "clean", "c", false, "clean (drop) database objects before recreating")
	fs.BoolVarP(&o.Create, "create", "C", false, "create the target database")
	fs.StringVarP(&o.DBName, "dbname", "d", "", "connect to database name")
	fs.BoolVarP(&o.ExitOnError, "exit-on-error", "e", false, "exit on error, default is to continue")
	fs.StringVarP(&o.OutputFile, "file", "f", "", "output file name")
	fs.StringVarP(&formatName, "format", "F", "", "backup file format")
	fs.StringArrayVarP(&o.Functions, "function", "P", nil, "restore named function")
	fs.StringVarP(&o.Host, "host", "h", "", "database server host or socket directory")
	fs.BoolVarP(&ignored, "ignore-version", "i", false, "ignored")
	fs.StringArrayVarP(&o.Indexes, "index", "I", nil, "restore named index")
	fs.IntVarP(&o.Jobs, "jobs", "j", 1, "use this many parallel jobs to restore")
	fs.BoolVarP(&o.TOCSummary, "list", "l", false, "print summarized TOC of the archive")
	fs.BoolVarP(&o.NoPrivileges, "no-privileges", "x", false, "skip restoration of access privileges")
	fs.BoolVar(&o.NoPrivileges, "no-acl", false, "skip restoration of access privileges")
	fs.BoolVarP(&o.NoOwner, "no-owner", "O", false, "skip restoration of object ownership")
	fs.BoolVarP(&ignored, "no-reconnect", "R", false, "ignored")
	fs.StringVarP(&o.Port, "port", "p", "", "database server port number")
	fs.StringVarP(&o.Password, "no-password", "w", "", "use this password, never prompt")
	fs.BoolVarP(&ignored, "password", "W", false, "force password prompt (not available)")
	fs.StringArrayVarP(&o.Schemas, "schema", "n", nil, "restore only objects in this schema")
	fs.BoolVarP(&o.SchemaOnly, "schema-only", "s", false, "restore only the schema, no data")
	fs.StringVarP(&o.Superuser, "superuser", "S", "", "superuser user name to use for disabling triggers")
	fs.StringArrayVarP(&o.Tables, "table", "t", nil, "restore named table")
	fs.StringArrayVarP(&o.Triggers, "trigger", "T", nil, "restore named trigger")
	fs.StringVarP(&o.TOCFile, "use-list", "L", "", "use table of contents from this file")
	fs.StringVarP(&o.Username, "username", "U", "", "connect as specified database user")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "verbose mode")
	fs.BoolVarP(&o.SingleTxn, "single-transaction", "1", false, "restore as a single transaction")
	fs.BoolVar(&o.DisableTriggers, "disable-triggers", false, "disable triggers during data-only restore")
	fs.BoolVar(&o.NoDataForFailedTables, "no-data-for-failed-tables", false, "do not restore data of tables that could not be created")
	fs.BoolVar(&o.NoTablespaces, "no-tablespaces", false, "do not restore tablespace assignments")
	fs.StringVar(&o.Role, "role", "", "do SET ROLE before restore")
	fs.StringArrayVar(&sections, "section", nil, "restore named section")
	fs.BoolVar(&o.UseSetSessionAuth, "use-set-session-authorization", false, "use SET SESSION AUTHORIZATION commands")
	fs.BoolVar(&o.NoSecurityLabels, "no-security-labels", false, "do not restore security labels")
	fs.StringVar(&o.Container, "container", "", "connect to the port a Docker container publishes")

	if err := fs.Parse(argv[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(r)
			return nil, "", r.Exit(1)
		}
		r.Emit("", "%s\n", flagError(err))
		return nil, "", tryHelp(r)
	}

	if o.SingleTxn {
		o.ExitOnError = true
	}
	for _, s := range sections {
		if err := setDumpSection(r, s, &o.Sections); err != nil {
			return nil, "", err
		}
	}

	var input string
	args := fs.Args()
	if len(args) > 0 {
		input = args[0]
	}
	if len(args) > 1 {
		r.Emit("", "too many command-line arguments (first is \"%s\")\n", args[1])
		return nil, "", tryHelp(r)
	}

	if o.DBName != "" {
		if o.OutputFile != "" {
			r.Emit("", "options -d/--dbname and -f/--file cannot be used together\n")
			return nil, "", tryHelp(r)
		}
		o.UseDB = true
	}

	if o.SingleTxn && o.Jobs > 1 {
		return nil, "", r.Fatal("", "cannot specify both --single-transaction and multiple jobs\n")
	}

	if formatName != "" {
		format, ok := archive.ParseFormat(formatName[:1])
		if !ok {
			return nil, "", r.Fatal("", "unrecognized archive format \"%s\"; please specify \"c\", \"d\", or \"t\"\n", formatName)
		}
		o.Format = format
	}

	if o.Container != "" && o.Host != "" {
		r.Emit("", "options -h/--host and --container cannot be used together\n")
		return nil, "", tryHelp(r)
	}

	return o, input, nil
}

func tryHelp(r *reentry.Run) error {
	r.Emit("", "Try \"%s --help\" for more information.\n", r.Program())
	return r.Exit(1)
}

// flagError rewords pflag's parse errors the way getopt reports them.
func flagError(err error) string {
	msg := err.Error()
	if name, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return "unrecognized option: " + name
	}
	if rest, ok := strings.CutPrefix(msg, "unknown shorthand flag: "); ok {
		if quoted, _, found := strings.Cut(rest, " in "); found {
			return "invalid option -- " + quoted
		}
	}
	return msg
}
