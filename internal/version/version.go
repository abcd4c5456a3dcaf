// Package version contains version information.
package version

// Version information for restorekit
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"

	// PGVersion is the PostgreSQL release whose pg_restore command line the
	// adapted driver accepts.
	PGVersion = "9.2"
)

// GetVersion returns the full version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns version with build metadata
func GetFullVersion() string {
	return Version + " (build: " + BuildDate + ", commit: " + GitCommit + ")"
}

// GetPGRestoreVersion returns the line the adapted driver prints for --version.
func GetPGRestoreVersion() string {
	return "pg_restore (PostgreSQL) " + PGVersion
}
