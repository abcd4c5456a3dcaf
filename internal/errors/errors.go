// Package apperrors provides domain-specific error types for restorekit.
// These error types include contextual information to aid debugging and error reporting.
package apperrors

import (
	"fmt"
	"strings"
)

// ConfigurationError represents configuration-related errors.
// It includes the configuration file path and specific key that caused the error.
type ConfigurationError struct {
	ConfigPath string // Path to the configuration file
	Key        string // Configuration key that caused the error
	Err        error  // Underlying error
}

// Error implements the error interface for ConfigurationError.
func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("configuration error in %s (key: %s): %v", e.ConfigPath, e.Key, e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.ConfigPath, e.Err)
}

// Unwrap returns the underlying error for error wrapping chains.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DockerConnectionError represents Docker connection and operation errors.
// It includes the socket path and the operation that failed.
type DockerConnectionError struct {
	SocketPath string // Docker socket path (e.g., /var/run/docker.sock)
	Operation  string // Operation that failed (e.g., "Ping", "ContainerInspect")
	Err        error  // Underlying error
}

// Error implements the error interface for DockerConnectionError.
func (e *DockerConnectionError) Error() string {
	if e.SocketPath != "" {
		return fmt.Sprintf("docker %s failed (socket: %s): %v", e.Operation, e.SocketPath, e.Err)
	}
	return fmt.Sprintf("docker %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for error wrapping chains.
func (e *DockerConnectionError) Unwrap() error {
	return e.Err
}

// RunStatusError reports an adapted run that did not succeed.
// It carries the run's status and exit code so commands can exit the way
// the standalone tool would have.
type RunStatusError struct {
	Program string // adapted program name (e.g., "pg_restore")
	Status  string // "completed_with_errors" or "aborted"
	Code    int    // exit code of the run
	Errors  int    // non-fatal errors reported during the run
}

// Error implements the error interface for RunStatusError.
func (e *RunStatusError) Error() string {
	if e.Errors > 0 {
		return fmt.Sprintf("%s %s (exit code %d, %d error(s))", e.Program, e.Status, e.Code, e.Errors)
	}
	return fmt.Sprintf("%s %s (exit code %d)", e.Program, e.Status, e.Code)
}

// ExitCode returns the process exit code for the failed run.
func (e *RunStatusError) ExitCode() int {
	if e.Code == 0 {
		return 1
	}
	return e.Code
}

// BatchError reports the jobs of a batch that did not succeed.
type BatchError struct {
	File   string   // batch file path
	Failed []string // names of the jobs that did not succeed
}

// Error implements the error interface for BatchError.
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %s: %d job(s) failed: %s", e.File, len(e.Failed), strings.Join(e.Failed, ", "))
}
