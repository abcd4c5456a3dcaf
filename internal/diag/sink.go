// Package diag captures the diagnostics an adapted command line tool would
// otherwise have written to stderr.
//
// Every message is prefixed with the program name (and module name, when
// given) and appended to a host-owned Transcript. Without a transcript the
// sink is a silent no-op.
package diag

import (
	"fmt"

	"golang.org/x/text/message"
)

// Sink formats diagnostics and appends them to a Transcript.
// A Sink is safe for concurrent use; a nil *Sink discards everything.
type Sink struct {
	program string
	capture *Transcript
	printer *message.Printer
}

// NewSink creates a sink for program writing into capture.
// capture may be nil, in which case Emit records nothing.
// printer performs the localized lookup of module names and format strings
// (and formats numbers for its locale); nil formats with package fmt and
// leaves every string untranslated.
func NewSink(program string, capture *Transcript, printer *message.Printer) *Sink {
	return &Sink{
		program: program,
		capture: capture,
		printer: printer,
	}
}

// Program returns the program name used in message titles.
func (s *Sink) Program() string {
	if s == nil {
		return ""
	}
	return s.program
}

// Capturing reports whether a capture slot is configured.
func (s *Sink) Capturing() bool {
	return s != nil && s.capture != nil
}

// Emit formats a diagnostic and appends it to the transcript.
//
// The title is "<program>: ", or "<program>: [<module>]: " when module is not
// empty. Both module and format are translated before formatting. Emit never
// fails: it reports failures, so it must not produce new ones.
func (s *Sink) Emit(module, format string, args ...any) {
	if !s.Capturing() {
		return
	}
	defer func() {
		_ = recover() // nolint:errcheck // a broken argument loses one message, never the run
	}()

	var title string
	if module != "" {
		title = s.program + ": [" + s.translate(module) + "]: "
	} else {
		title = s.program + ": "
	}

	s.capture.append(Entry{
		Module:  module,
		Title:   title,
		Message: s.sprintf(format, args...),
	})
}

func (s *Sink) sprintf(format string, args ...any) string {
	if s.printer == nil {
		return fmt.Sprintf(format, args...)
	}
	return s.printer.Sprintf(format, args...)
}

// translate looks a plain string up in the printer's catalog.
func (s *Sink) translate(key string) string {
	if s.printer == nil {
		return key
	}
	return s.printer.Sprintf(key)
}
