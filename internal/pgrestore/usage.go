package pgrestore

import (
	"strings"

	"github.com/zorak1103/restorekit/internal/reentry"
)

var usageText = []string{
	"%[1]s restores a PostgreSQL database from an archive created by pg_dump.\n\n",
	"Usage:\n",
	"  %[1]s [OPTION]... [FILE]\n",

	"\nGeneral options:\n",
	"  -d, --dbname=NAME        connect to database name\n",
	"  -f, --file=FILENAME      output file name\n",
	"  -F, --format=c|d|t       backup file format (should be automatic)\n",
	"  -l, --list               print summarized TOC of the archive\n",
	"  -v, --verbose            verbose mode\n",
	"  --help                   show this help, then exit\n",
	"  --version                output version information, then exit\n",

	"\nOptions controlling the restore:\n",
	"  -a, --data-only          restore only the data, no schema\n",
	"  -c, --clean              clean (drop) database objects before recreating\n",
	"  -C, --create             create the target database\n",
	"  -e, --exit-on-error      exit on error, default is to continue\n",
	"  -I, --index=NAME         restore named index\n",
	"  -j, --jobs=NUM           use this many parallel jobs to restore\n",
	"  -L, --use-list=FILENAME  use table of contents from this file for\n" +
		"                           selecting/ordering output\n",
	"  -n, --schema=NAME        restore only objects in this schema\n",
	"  -O, --no-owner           skip restoration of object ownership\n",
	"  -P, --function=NAME(args)\n" +
		"                           restore named function\n",
	"  -s, --schema-only        restore only the schema, no data\n",
	"  -S, --superuser=NAME     superuser user name to use for disabling triggers\n",
	"  -t, --table=NAME         restore named table\n",
	"  -T, --trigger=NAME       restore named trigger\n",
	"  -x, --no-privileges      skip restoration of access privileges (grant/revoke)\n",
	"  -1, --single-transaction\n" +
		"                           restore as a single transaction\n",
	"  --disable-triggers       disable triggers during data-only restore\n",
	"  --no-data-for-failed-tables\n" +
		"                           do not restore data of tables that could not be\n" +
		"                           created\n",
	"  --no-security-labels     do not restore security labels\n",
	"  --no-tablespaces         do not restore tablespace assignments\n",
	"  --section=SECTION        restore named section (pre-data, data, or post-data)\n",
	"  --use-set-session-authorization\n" +
		"                           use SET SESSION AUTHORIZATION commands instead of\n" +
		"                           ALTER OWNER commands to set ownership\n",

	"\nConnection options:\n",
	"  -h, --host=HOSTNAME      database server host or socket directory\n",
	"  -p, --port=PORT          database server port number\n",
	"  -U, --username=NAME      connect as specified database user\n",
	"  -w, --no-password=PASSWORD\n" +
		"                           use this password, never prompt\n",
	"  -W, --password           force password prompt (not available)\n",
	"  --role=ROLENAME          do SET ROLE before restore\n",
	"  --container=NAME         connect to the port a Docker container publishes\n",

	"\nIf no input file name is supplied, then standard input is used.\n\n",
}

// usage writes the help text to the run's transcript, one line per entry.
func usage(r *reentry.Run) {
	for _, line := range usageText {
		if strings.Contains(line, "%[1]s") {
			r.Emit("", line, r.Program())
			continue
		}
		r.Emit("", "%s", line)
	}
}
