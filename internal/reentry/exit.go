package reentry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ExitError is the result of terminating a run. It travels up the ordinary
// error returns of the driver and engine until the Boundary converts it into
// a Result. Code paths that receive one must return it unchanged.
type ExitError struct {
	Code   int
	Worker bool // true when only a worker unit ended
}

func (e *ExitError) Error() string {
	if e.Worker {
		return fmt.Sprintf("worker exit code %d", e.Code)
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// AsExit reports whether err carries an ExitError and returns it.
func AsExit(err error) (*ExitError, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr, true
	}
	return nil, false
}

// IsAbort reports whether err is a fatal termination of a primary run.
func IsAbort(err error) bool {
	exitErr, ok := AsExit(err)
	return ok && !exitErr.Worker && exitErr.Code != 0
}

// Exit terminates the run with code.
//
// It drains the cleanup registry, most recent finalizer first, and returns
// the abort result the caller must propagate. On a worker unit the result
// only ends that worker. Exit is the only sanctioned way to signal a fatal
// condition; non-fatal errors go through ReportError.
func (r *Run) Exit(code int) error {
	r.drain(code)
	return &ExitError{Code: code, Worker: r.worker}
}

// Finish runs the pending finalizers of a unit that ended normally, with
// exit code 0. Workers call it when their queue is empty.
func (r *Run) Finish() {
	r.drain(0)
}

func (r *Run) drain(code int) {
	if labels := r.cleanups.Labels(); len(labels) > 0 && r.Verbose() {
		slices.Reverse(labels)
		r.Verbosef("", "running %d cleanup(s) with exit code %d: %s\n", len(labels), code, strings.Join(labels, ", "))
	}
	if err := r.cleanups.RunAllAndReset(code); err != nil {
		r.sink.Emit("", "%v\n", err)
	}
}

// Abort is Exit for code that cannot return an error. It panics with the
// abort result; the Boundary recovers it like a returned one. On a worker
// unit, call it only inside Run.Go.
func (r *Run) Abort(code int) {
	panic(r.Exit(code))
}

// Fatal reports a fatal condition and terminates the run with code 1.
func (r *Run) Fatal(module, format string, args ...any) error {
	r.sink.Emit(module, format, args...)
	return r.Exit(1)
}

// ReportError records a non-fatal error: it is emitted and counted, and the
// run continues. When the exit-on-error policy is on, the error is escalated
// to a fatal termination and the abort result is returned.
func (r *Run) ReportError(module, format string, args ...any) error {
	r.sink.Emit(module, format, args...)
	r.errors.Add(1)
	if r.ExitOnError() {
		return r.Exit(1)
	}
	return nil
}
