// Package symbol resolves program addresses into symbol identities, classifies them,
// and reads/writes analyst metadata attached to functions.
//
// Nothing here is cached: every query goes back to the Database, which may be
// mutated by the user between calls.
package symbol

// Function is a defined function's address range [Start, End).
type Function struct {
	Start uint64
	End   uint64
}

// Contains reports whether ea lies inside the function body.
func (f Function) Contains(ea uint64) bool {
	return ea >= f.Start && ea < f.End
}

// Perm is a segment permission bit set.
type Perm uint8

const (
	PermExec  Perm = 1
	PermWrite Perm = 2
	PermRead  Perm = 4
)

// Segment is the segment containing an address.
type Segment struct {
	Name  string
	Start uint64
	End   uint64
	Perm  Perm
}

// XrefKind is the flavor of a cross-reference.
type XrefKind int

const (
	XrefUnknown XrefKind = iota
	XrefDataOffset
	XrefDataWrite
	XrefDataRead
	XrefCallFar
	XrefCallNear
	XrefJumpFar
	XrefJumpNear
	XrefFlow
)

// IsCode reports whether the kind belongs to the code reference family.
func (k XrefKind) IsCode() bool {
	return k >= XrefCallFar
}

func (k XrefKind) String() string {
	switch k {
	case XrefDataOffset:
		return "offset"
	case XrefDataWrite:
		return "write"
	case XrefDataRead:
		return "read"
	case XrefCallFar:
		return "call far"
	case XrefCallNear:
		return "call"
	case XrefJumpFar:
		return "jump far"
	case XrefJumpNear:
		return "jump"
	case XrefFlow:
		return "flow"
	default:
		return "unknown"
	}
}

// Xref is one incoming reference to an address.
type Xref struct {
	From   uint64
	IsCode bool
	Kind   XrefKind
}

// FrameMember is one declared stack slot. Offset is relative to the frame start.
type FrameMember struct {
	Name   string
	Offset int64
}

// Frame is a function's stack layout.
type Frame struct {
	Members       []FrameMember
	LocalSize     int64
	SavedRegsSize int64
}

// Database is the live analysis database. Implementations are shared and
// externally owned; this package only reads from them.
type Database interface {
	NameAt(ea uint64) (string, bool)
	FunctionContaining(ea uint64) (Function, bool)
	// ShortName returns the possibly decorated short name of the function
	// starting at start, e.g. "int __cdecl foo(int,char*)".
	ShortName(start uint64) string
	SegmentOf(ea uint64) (Segment, bool)
	XrefsTo(ea uint64) []Xref
	ImportModules() []string
	ImportedNames(module string) []string
	FrameOf(fn Function) (Frame, bool)
	CleanName(ea uint64, raw string) (string, bool)
}

// Dialect selects demangling behavior.
type Dialect string

// DefaultDialect is pinned so names render the same everywhere.
const DefaultDialect Dialect = "full"

// Demangler turns a mangled name into its readable form.
type Demangler interface {
	Demangle(name string, dialect Dialect) (string, bool)
}

// Node is a single persisted string slot.
type Node interface {
	Get() (string, bool, error)
	Set(value string) error
}

// Store opens (creating if needed) persisted nodes by key.
type Store interface {
	Open(key string) (Node, error)
}

// TypeDescriptor is a parsed type declaration.
type TypeDescriptor interface {
	CanonicalName() string
}

// TypeParser parses stored declaration strings.
type TypeParser interface {
	Parse(decl string) (TypeDescriptor, error)
}

// Location describes where a variable lives. It is informational only.
type Location struct {
	Space  string
	Offset int64
	Size   int
}
