// Package cleanup keeps the stack of finalizers that release the resources
// of an adapted run (open archives, connections, output files) when the run
// terminates.
package cleanup

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultCapacity is the number of finalizers a registry accepts when no
// explicit capacity is configured.
const DefaultCapacity = 20

// ErrCapacity is returned by Register when the registry is full.
var ErrCapacity = errors.New("out of on-exit slots")

// Func releases one resource. code is the exit code of the terminating run.
// Implementations must tolerate a resource that is already released.
type Func func(code int)

type entry struct {
	label string
	fn    Func
}

// Registry is a LIFO stack of finalizers.
type Registry struct {
	mu       sync.Mutex
	entries  []entry
	capacity int
}

// NewRegistry creates a registry holding at most capacity finalizers.
// A capacity of 0 selects DefaultCapacity; a negative capacity means no limit.
func NewRegistry(capacity int) *Registry {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	return &Registry{capacity: capacity}
}

// Register pushes fn onto the stack. label names the resource in diagnostics.
func (r *Registry) Register(label string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("cleanup %q: nil finalizer", label)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capacity > 0 && len(r.entries) >= r.capacity {
		return fmt.Errorf("registering %q (capacity %d): %w", label, r.capacity, ErrCapacity)
	}
	r.entries = append(r.entries, entry{label: label, fn: fn})
	return nil
}

// Len returns the number of pending finalizers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Capacity returns the configured limit (negative when unlimited).
func (r *Registry) Capacity() int {
	return r.capacity
}

// Labels returns the pending finalizer labels, earliest first.
func (r *Registry) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels := make([]string, len(r.entries))
	for i, e := range r.entries {
		labels[i] = e.label
	}
	return labels
}

// RunAllAndReset invokes every pending finalizer, most recently registered
// first, and leaves the registry empty.
//
// Each entry is removed before it runs, so a finalizer that triggers another
// RunAllAndReset (directly or by terminating the run) only sees the entries
// below it and every finalizer fires exactly once. A panicking finalizer does
// not stop the others; its panic is returned as an error.
func (r *Registry) RunAllAndReset(code int) error {
	var errs []error
	for {
		e, ok := r.pop()
		if !ok {
			break
		}
		if err := invoke(e, code); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) pop() (entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if n == 0 {
		return entry{}, false
	}
	e := r.entries[n-1]
	r.entries[n-1] = entry{}
	r.entries = r.entries[:n-1]
	return e, true
}

func invoke(e entry, code int) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("cleanup %q panicked: %v", e.label, v)
		}
	}()
	e.fn(code)
	return nil
}
