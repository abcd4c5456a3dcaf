package diag

import (
	"io"
	"slices"
	"sync"
)

// Entry is one diagnostic recorded by a Sink.
type Entry struct {
	Module  string // Module name as passed to Emit (untranslated, may be empty)
	Title   string // "<program>: " or "<program>: [<module>]: "
	Message string // Formatted message text
}

// String returns the entry exactly as it appears in the transcript.
func (e Entry) String() string {
	return e.Title + e.Message
}

// Transcript is the capture buffer a host hands to an adapted run.
// The zero value is ready to use; storage is allocated on the first write.
// Text is only ever appended, so the transcript always holds every diagnostic
// emitted so far in emission order.
type Transcript struct {
	mu      sync.Mutex
	buf     []byte
	entries []Entry
}

func (t *Transcript) append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = slices.Grow(t.buf, len(e.Title)+len(e.Message))
	t.buf = append(t.buf, e.Title...)
	t.buf = append(t.buf, e.Message...)
	t.entries = append(t.entries, e)
}

// String returns the concatenated transcript.
func (t *Transcript) String() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// Len returns the transcript length in bytes.
func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

// Allocated reports whether anything has been written yet.
func (t *Transcript) Allocated() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf != nil
}

// Entries returns a copy of the recorded diagnostics.
func (t *Transcript) Entries() []Entry {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.entries)
}

// Count returns the number of recorded diagnostics.
func (t *Transcript) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// WriteTo writes the transcript to w.
func (t *Transcript) WriteTo(w io.Writer) (int64, error) {
	if t == nil {
		return 0, nil
	}
	t.mu.Lock()
	data := slices.Clone(t.buf)
	t.mu.Unlock()

	n, err := w.Write(data)
	return int64(n), err
}

// Reset releases the transcript storage so the host can reuse it.
func (t *Transcript) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = nil
	t.entries = nil
}
