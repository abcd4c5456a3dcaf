package pgrestore

import (
	"github.com/zorak1103/restorekit/internal/archive"
	"github.com/zorak1103/restorekit/internal/reentry"
)

// setDumpSection adds the section named by arg to sections. The first call
// replaces the default of all sections.
func setDumpSection(r *reentry.Run, arg string, sections *archive.Section) error {
	if *sections == archive.SectionAll {
		*sections = 0
	}

	switch arg {
	case "pre-data":
		*sections |= archive.SectionPreData
	case "data":
		*sections |= archive.SectionData
	case "post-data":
		*sections |= archive.SectionPostData
	default:
		r.Emit("", "unrecognized section name: \"%s\"\n", arg)
		r.Emit("", "Try \"%s --help\" for more information.\n", r.Program())
		return r.Exit(1)
	}
	return nil
}
