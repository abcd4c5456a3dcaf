package archive

import (
	"strings"
)

// Format identifies an archive layout.
type Format int

const (
	// FormatUnknown asks Open to detect the format.
	FormatUnknown Format = iota
	// FormatCustom is the compressed single-file format of pg_dump -Fc.
	FormatCustom
	// FormatDirectory is a directory of members.
	FormatDirectory
	// FormatTar is a tar file of members.
	FormatTar
)

func (f Format) String() string {
	switch f {
	case FormatCustom:
		return "CUSTOM"
	case FormatDirectory:
		return "DIRECTORY"
	case FormatTar:
		return "TAR"
	default:
		return "UNKNOWN"
	}
}

// ParseFormat accepts the spellings of the --format option: the first
// letter or the full name, in any case. The empty string means detect.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "":
		return FormatUnknown, true
	case "c", "custom":
		return FormatCustom, true
	case "d", "directory":
		return FormatDirectory, true
	case "t", "tar":
		return FormatTar, true
	default:
		return FormatUnknown, false
	}
}

// Section is a set of dump sections.
type Section uint8

const (
	SectionPreData  Section = 1 << iota // definitions before data
	SectionData                         // table data
	SectionPostData                     // indexes, constraints, triggers
)

// SectionAll selects every section; it is the default.
const SectionAll Section = 0xff

// Has reports whether s selects every section in other.
func (s Section) Has(other Section) bool {
	return s&other == other
}

// RestoreOptions are the settings a restore run collects from its command
// line.
type RestoreOptions struct {
	// input and output
	Filename   string // archive path; empty reads standard input
	Format     Format
	OutputFile string // script target; empty or "-" writes standard output
	UseDB      bool   // restore into a database instead of a script

	// connection
	DBName    string
	Host      string
	Port      string
	Username  string
	Password  string
	Role      string
	Container string // docker container publishing the server port

	// behavior
	Clean                 bool
	Create                bool
	DataOnly              bool
	SchemaOnly            bool
	SingleTxn             bool
	ExitOnError           bool
	NoOwner               bool
	NoPrivileges          bool
	NoTablespaces         bool
	NoSecurityLabels      bool
	NoDataForFailedTables bool
	DisableTriggers       bool
	UseSetSessionAuth     bool
	Superuser             string
	Jobs                  int
	Sections              Section
	Verbose               bool

	// listing and selection
	TOCSummary bool
	TOCFile    string
	Schemas    []string
	Tables     []string
	Functions  []string
	Indexes    []string
	Triggers   []string
}

// NewRestoreOptions returns the defaults of a fresh run.
func NewRestoreOptions() *RestoreOptions {
	return &RestoreOptions{
		Jobs:     1,
		Sections: SectionAll,
	}
}

// Selective reports whether any object selection option is set.
func (o *RestoreOptions) Selective() bool {
	return len(o.Schemas)+len(o.Tables)+len(o.Functions)+len(o.Indexes)+len(o.Triggers) > 0
}

