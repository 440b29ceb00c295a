package symbol

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// ImportPrefix marks names resolved as imported routines.
	ImportPrefix = "__imp_"

	placeholderPrefix = "sub_"

	// readOnlyDataSegment is treated as read-only regardless of its
	// permission bits so constants in it get propagated downstream.
	readOnlyDataSegment = ".data"
)

// IsPlaceholder reports whether name is an auto-generated function name.
func IsPlaceholder(name string) bool {
	return strings.HasPrefix(name, placeholderPrefix)
}

// SymbolInfo is a name bound to an address. All predicates query the
// database live.
type SymbolInfo struct {
	loc  *Locator
	ea   uint64
	name string
}

func (s *SymbolInfo) Address() uint64 { return s.ea }

// RawName is the name as bound when the symbol was located.
func (s *SymbolInfo) RawName() string { return s.name }

func (s *SymbolInfo) String() string {
	return fmt.Sprintf("%s@%#x", s.name, s.ea)
}

// IsFunction reports whether the address is exactly a function entry.
func (s *SymbolInfo) IsFunction() bool {
	fn, ok := s.loc.db.FunctionContaining(s.ea)
	return ok && fn.Start == s.ea
}

// IsImport reports whether the name appears in any import module.
func (s *SymbolInfo) IsImport() bool {
	name := s.name
	if len(name) > len(ImportPrefix) && strings.HasPrefix(name, ImportPrefix) {
		name = name[len(ImportPrefix):]
	}

	db := s.loc.db
	for _, module := range db.ImportModules() {
		if slices.Contains(db.ImportedNames(module), name) {
			return true
		}
	}
	return false
}

// IsLabel reports whether the address is the target of a direct jump.
// The walk stops at the first data reference.
func (s *SymbolInfo) IsLabel() bool {
	for _, xr := range s.loc.db.XrefsTo(s.ea) {
		if !xr.IsCode {
			break
		}
		if xr.Kind == XrefJumpNear {
			return true
		}
	}
	return false
}

// IsReadOnly reports whether the address lives in read-only data.
func (s *SymbolInfo) IsReadOnly() bool {
	seg, ok := s.loc.db.SegmentOf(s.ea)
	if !ok {
		return false
	}
	if seg.Name == readOnlyDataSegment {
		return true
	}
	return seg.Perm == PermRead || seg.Perm == PermRead|PermExec
}

// FunctionSize returns the size of the function starting at the address.
func (s *SymbolInfo) FunctionSize() (uint64, error) {
	fn, ok := s.loc.db.FunctionContaining(s.ea)
	if !ok || fn.Start != s.ea {
		return 0, fmt.Errorf("%s: %w", s.name, ErrNotAFunction)
	}
	return fn.End - fn.Start, nil
}

// Name returns the display name: cleaned, demangled without parameters,
// and prefixed with ImportPrefix for imports.
func (s *SymbolInfo) Name() string {
	name := s.name
	if !IsPlaceholder(name) {
		if cleaned, ok := s.loc.db.CleanName(s.ea, name); ok {
			name = cleaned
		}
	}

	if d := s.loc.demangler; d != nil {
		if demangled, ok := d.Demangle(name, s.loc.dialect); ok && demangled != "" {
			if i := strings.IndexByte(demangled, '('); i >= 0 {
				demangled = demangled[:i]
			}
			name = demangled
		}
	}

	if s.IsImport() {
		return ImportPrefix + name
	}
	return name
}
