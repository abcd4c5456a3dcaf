package reentry

import (
	"fmt"
	"time"
)

// Status is the outcome of a run.
type Status int

const (
	// StatusSuccess means the tool returned normally without errors.
	StatusSuccess Status = iota
	// StatusCompletedWithErrors means the tool returned normally after
	// reporting non-fatal errors.
	StatusCompletedWithErrors
	// StatusAborted means the tool terminated on a fatal condition.
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusCompletedWithErrors:
		return "completed_with_errors"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is what the Boundary returns for one run.
type Result struct {
	Status   Status
	Code     int // exit code the standalone tool would have used
	Errors   int // non-fatal errors reported during the run
	Duration time.Duration
}

// OK reports whether the run reached its normal end, with or without
// non-fatal errors.
func (r Result) OK() bool {
	return r.Status != StatusAborted
}

// ExitCode maps the result to a process exit code: 0 on success, the abort
// code when aborted, and 1 when the run completed with errors.
func (r Result) ExitCode() int {
	switch r.Status {
	case StatusSuccess:
		return 0
	case StatusAborted:
		if r.Code == 0 {
			return 1
		}
		return r.Code
	default:
		return 1
	}
}

func (r Result) String() string {
	switch r.Status {
	case StatusSuccess:
		return "completed successfully"
	case StatusCompletedWithErrors:
		return fmt.Sprintf("completed with %d error(s)", r.Errors)
	case StatusAborted:
		if r.Errors > 0 {
			return fmt.Sprintf("aborted with exit code %d after %d error(s)", r.Code, r.Errors)
		}
		return fmt.Sprintf("aborted with exit code %d", r.Code)
	default:
		return r.Status.String()
	}
}

func completed(errors int) Result {
	if errors > 0 {
		return Result{Status: StatusCompletedWithErrors, Code: 1, Errors: errors}
	}
	return Result{Status: StatusSuccess, Errors: errors}
}
