// Package reentry lets a command line tool written to terminate the process
// on any fatal condition run as a subroutine of a long-lived host.
//
// A Boundary establishes a run, a Run carries the state the tool used to keep
// in globals (diagnostics sink, cleanup stack, error counter), and Run.Exit
// replaces process termination with an abort result returned to the Boundary.
package reentry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/zorak1103/restorekit/internal/cleanup"
	"github.com/zorak1103/restorekit/internal/diag"
)

// Run is the state of one adapted invocation.
type Run struct {
	sink     *diag.Sink
	cleanups *cleanup.Registry
	worker   bool

	// shared between the primary unit and its workers
	errors      *atomic.Int64
	exitOnError *atomic.Bool
	verbose     *atomic.Bool
}

func newRun(sink *diag.Sink, capacity int) *Run {
	return &Run{
		sink:        sink,
		cleanups:    cleanup.NewRegistry(capacity),
		errors:      &atomic.Int64{},
		exitOnError: &atomic.Bool{},
		verbose:     &atomic.Bool{},
	}
}

// NewDetachedRun creates a run that is not bound to a Boundary. It is meant
// for tests and tools that drive engine code directly; nothing converts its
// abort results.
func NewDetachedRun(program string, capture *diag.Transcript) *Run {
	return newRun(diag.NewSink(program, capture, nil), cleanup.DefaultCapacity)
}

// Program returns the program name used in diagnostics.
func (r *Run) Program() string {
	return r.sink.Program()
}

// Sink returns the run's diagnostics sink.
func (r *Run) Sink() *diag.Sink {
	return r.sink
}

// Emit writes a diagnostic to the run's transcript.
func (r *Run) Emit(module, format string, args ...any) {
	r.sink.Emit(module, format, args...)
}

// Verbosef emits only when verbose mode is on.
func (r *Run) Verbosef(module, format string, args ...any) {
	if r.Verbose() {
		r.sink.Emit(module, format, args...)
	}
}

// OnExit registers a finalizer that runs when the run terminates. Running out
// of slots is fatal: the overflow is reported and the abort result returned.
func (r *Run) OnExit(label string, fn cleanup.Func) error {
	if err := r.cleanups.Register(label, fn); err != nil {
		return r.Fatal("", "%v\n", err)
	}
	return nil
}

// PendingCleanups returns the number of registered finalizers.
func (r *Run) PendingCleanups() int {
	return r.cleanups.Len()
}

// Errors returns the number of non-fatal errors reported so far.
func (r *Run) Errors() int {
	return int(r.errors.Load())
}

// SetExitOnError turns escalation of non-fatal errors on or off.
func (r *Run) SetExitOnError(on bool) {
	r.exitOnError.Store(on)
}

// ExitOnError reports whether non-fatal errors are escalated.
func (r *Run) ExitOnError() bool {
	return r.exitOnError.Load()
}

// SetVerbose turns verbose diagnostics on or off.
func (r *Run) SetVerbose(on bool) {
	r.verbose.Store(on)
}

// Verbose reports whether verbose diagnostics are on.
func (r *Run) Verbose() bool {
	return r.verbose.Load()
}

// IsWorker reports whether r is a secondary unit created by Worker.
func (r *Run) IsWorker() bool {
	return r.worker
}

// Worker derives a secondary unit for parallel work. It shares the sink,
// error counter and policies of r but has its own cleanup stack, and its Exit
// ends only the worker.
func (r *Run) Worker() *Run {
	return &Run{
		sink:        r.sink,
		cleanups:    cleanup.NewRegistry(r.cleanups.Capacity()),
		worker:      true,
		errors:      r.errors,
		exitOnError: r.exitOnError,
		verbose:     r.verbose,
	}
}

// Go runs fn as the body of a worker unit. An Abort panic inside fn becomes
// the worker's returned exit result; any other panic terminates the worker
// with code 1.
func (r *Run) Go(fn func() error) (err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if e, ok := v.(error); ok {
			if _, isExit := AsExit(e); isExit {
				err = e
				return
			}
		}
		r.sink.Emit("", "worker panic: %v\n", v)
		err = r.Exit(1)
	}()
	return fn()
}

type runKey struct{}

// WithRun returns a context carrying r for code that only receives a context.
func WithRun(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, runKey{}, r)
}

// FromContext returns the run stored in ctx.
func FromContext(ctx context.Context) (*Run, bool) {
	r, ok := ctx.Value(runKey{}).(*Run)
	return r, ok
}

// MustFromContext returns the run stored in ctx and panics without one.
func MustFromContext(ctx context.Context) *Run {
	r, ok := FromContext(ctx)
	if !ok {
		panic(fmt.Sprintf("reentry: no run in context %v", ctx))
	}
	return r
}
