package reentry

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/zorak1103/restorekit/internal/diag"
	"golang.org/x/text/message"
)

// ErrActive is returned when a Boundary is entered while a run is already
// active on it. Boundaries do not nest.
var ErrActive = errors.New("reentry: a run is already active on this boundary")

// Main is the body of an adapted tool. It returns nil on a normal end, or
// the error produced by Run.Exit (or anything derived from a Run) unchanged.
type Main func(ctx context.Context, r *Run) error

// Invocation describes one run.
type Invocation struct {
	Program         string           // program name used in diagnostic titles
	Capture         *diag.Transcript // capture slot; nil records nothing
	CleanupCapacity int              // 0 = cleanup.DefaultCapacity, <0 = unlimited
	Printer         *message.Printer // localized lookup; nil = untranslated
}

// Boundary is the resumption point of adapted runs. Only one run may be
// active on a Boundary at a time.
type Boundary struct {
	active atomic.Bool
}

// NewBoundary creates an inactive boundary.
func NewBoundary() *Boundary {
	return &Boundary{}
}

// Active reports whether a run is in progress.
func (b *Boundary) Active() bool {
	return b.active.Load()
}

// Run executes main as an adapted tool and converts every way it can end
// into a Result:
//
//   - a normal return yields success, or completed-with-errors when non-fatal
//     errors were reported;
//   - an abort result from Run.Exit, returned or raised by Run.Abort, yields
//     aborted with its exit code (a zero code ends the run successfully);
//   - any other error or panic is written to the transcript and yields
//     aborted with code 1.
//
// Whatever the outcome, pending finalizers have fired and the boundary is
// inactive again when Run returns. The only error Run itself returns is
// ErrActive.
func (b *Boundary) Run(ctx context.Context, inv Invocation, main Main) (Result, error) {
	if !b.active.CompareAndSwap(false, true) {
		return Result{}, ErrActive
	}
	defer b.active.Store(false)

	start := time.Now()
	r := newRun(diag.NewSink(inv.Program, inv.Capture, inv.Printer), inv.CleanupCapacity)
	res := invoke(ctx, r, main)
	res.Duration = time.Since(start)
	return res, nil
}

func invoke(ctx context.Context, r *Run, main Main) (res Result) {
	defer func() {
		if v := recover(); v != nil {
			res = r.settle(r.recovered(v))
		}
	}()
	return r.settle(main(WithRun(ctx, r), r))
}

// recovered turns a panic value into the error settle expects.
func (r *Run) recovered(v any) error {
	if err, ok := v.(error); ok {
		if _, isExit := AsExit(err); isExit {
			return err
		}
	}
	r.sink.Emit("", "unexpected panic: %v\n%s", v, string(debug.Stack()))
	return &ExitError{Code: 1}
}

func (r *Run) settle(err error) Result {
	code := 0
	if err != nil {
		if exitErr, ok := AsExit(err); ok {
			code = exitErr.Code
		} else {
			r.sink.Emit("", "%v\n", err)
			code = 1
		}
	}

	// finalizers still pending after a normal end belong to this run too
	r.drain(code)

	if code == 0 {
		return completed(r.Errors())
	}
	return Result{Status: StatusAborted, Code: code, Errors: r.Errors()}
}
