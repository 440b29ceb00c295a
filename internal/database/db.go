// Package database is an in-process, mutable analysis database. It serves the
// symbol package's queries and publishes change events to subscribers.
package database

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"symres/internal/symbol"
)

// ShortNamer renders the short, possibly decorated name of a function from its
// bound name. The ELF loader plugs in a demangler here.
type ShortNamer func(name string) string

// DB holds names, functions, segments, cross-references, imports and frames.
// It is safe for concurrent use, though callers normally drive it from one goroutine.
type DB struct {
	mu        sync.RWMutex
	names     map[uint64]string
	funcs     []symbol.Function // sorted by Start, non-overlapping
	segments  []symbol.Segment  // sorted by Start
	codeXrefs map[uint64][]symbol.Xref
	dataXrefs map[uint64][]symbol.Xref
	imports   map[string][]string
	modules   []string
	frames    map[uint64]symbol.Frame
	cleaned   map[uint64]string
	shortName ShortNamer

	subs   map[int]func(Event)
	nextID int
}

// New returns an empty database.
func New() *DB {
	return &DB{
		names:     make(map[uint64]string),
		codeXrefs: make(map[uint64][]symbol.Xref),
		dataXrefs: make(map[uint64][]symbol.Xref),
		imports:   make(map[string][]string),
		frames:    make(map[uint64]symbol.Frame),
		cleaned:   make(map[uint64]string),
		subs:      make(map[int]func(Event)),
	}
}

var _ symbol.Database = (*DB)(nil)

// SetShortNamer installs the renderer used by ShortName.
func (db *DB) SetShortNamer(fn ShortNamer) {
	db.mu.Lock()
	db.shortName = fn
	db.mu.Unlock()
}

// SetName binds name to ea. An empty name removes the binding.
func (db *DB) SetName(ea uint64, name string) {
	db.mu.Lock()
	if name == "" {
		delete(db.names, ea)
	} else {
		db.names[ea] = name
	}
	delete(db.cleaned, ea)
	db.mu.Unlock()
	db.publish(Event{Kind: EventRename, Address: ea})
}

// SetCleanName registers an explicit cleaned form for the name at ea.
func (db *DB) SetCleanName(ea uint64, cleaned string) {
	db.mu.Lock()
	db.cleaned[ea] = cleaned
	db.mu.Unlock()
	db.publish(Event{Kind: EventRename, Address: ea})
}

// AddFunction defines a function. Functions overlapping an existing one are
// rejected and false is returned.
func (db *DB) AddFunction(fn symbol.Function) bool {
	if fn.End <= fn.Start {
		return false
	}
	db.mu.Lock()
	i := sort.Search(len(db.funcs), func(i int) bool { return db.funcs[i].End > fn.Start })
	if i < len(db.funcs) && db.funcs[i].Start < fn.End {
		db.mu.Unlock()
		return false
	}
	db.funcs = append(db.funcs, symbol.Function{})
	copy(db.funcs[i+1:], db.funcs[i:])
	db.funcs[i] = fn
	db.mu.Unlock()
	db.publish(Event{Kind: EventFunction, Address: fn.Start})
	return true
}

// RemoveFunction undefines the function starting at start.
func (db *DB) RemoveFunction(start uint64) bool {
	db.mu.Lock()
	i, found := sort.Find(len(db.funcs), func(i int) int {
		switch {
		case start < db.funcs[i].Start:
			return -1
		case start > db.funcs[i].Start:
			return 1
		}
		return 0
	})
	if !found {
		db.mu.Unlock()
		return false
	}
	db.funcs = append(db.funcs[:i], db.funcs[i+1:]...)
	delete(db.frames, start)
	db.mu.Unlock()
	db.publish(Event{Kind: EventFunction, Address: start})
	return true
}

// Functions returns a copy of all defined functions in address order.
func (db *DB) Functions() []symbol.Function {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]symbol.Function(nil), db.funcs...)
}

// AddSegment adds a segment. Later segments win when ranges overlap.
func (db *DB) AddSegment(seg symbol.Segment) {
	db.mu.Lock()
	db.segments = append(db.segments, seg)
	sort.SliceStable(db.segments, func(i, j int) bool { return db.segments[i].Start < db.segments[j].Start })
	db.mu.Unlock()
	db.publish(Event{Kind: EventSegment, Address: seg.Start})
}

// AddXref records a reference from -> to. Code references are always
// listed before data references.
func (db *DB) AddXref(from, to uint64, kind symbol.XrefKind) {
	xr := symbol.Xref{From: from, IsCode: kind.IsCode(), Kind: kind}
	db.mu.Lock()
	if xr.IsCode {
		db.codeXrefs[to] = append(db.codeXrefs[to], xr)
	} else {
		db.dataXrefs[to] = append(db.dataXrefs[to], xr)
	}
	db.mu.Unlock()
	db.publish(Event{Kind: EventXref, Address: to})
}

// AddImport appends names to an import module, creating it on first use.
func (db *DB) AddImport(module string, names ...string) {
	db.mu.Lock()
	if _, ok := db.imports[module]; !ok {
		db.modules = append(db.modules, module)
	}
	db.imports[module] = lo.Uniq(append(db.imports[module], names...))
	db.mu.Unlock()
	db.publish(Event{Kind: EventImport})
}

// SetFrame sets the stack frame of the function starting at start.
func (db *DB) SetFrame(start uint64, frame symbol.Frame) {
	db.mu.Lock()
	db.frames[start] = frame
	db.mu.Unlock()
	db.publish(Event{Kind: EventFrame, Address: start})
}

// Names returns all bound addresses in ascending order.
func (db *DB) Names() []uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	eas := lo.Keys(db.names)
	sort.Slice(eas, func(i, j int) bool { return eas[i] < eas[j] })
	return eas
}

func (db *DB) NameAt(ea uint64) (string, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	name, ok := db.names[ea]
	return name, ok
}

func (db *DB) FunctionContaining(ea uint64) (symbol.Function, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	i := sort.Search(len(db.funcs), func(i int) bool { return db.funcs[i].End > ea })
	if i < len(db.funcs) && db.funcs[i].Contains(ea) {
		return db.funcs[i], true
	}
	return symbol.Function{}, false
}

func (db *DB) ShortName(start uint64) string {
	db.mu.RLock()
	name := db.names[start]
	render := db.shortName
	db.mu.RUnlock()
	if render == nil || name == "" {
		return name
	}
	return render(name)
}

func (db *DB) SegmentOf(ea uint64) (symbol.Segment, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for i := len(db.segments) - 1; i >= 0; i-- {
		seg := db.segments[i]
		if ea >= seg.Start && ea < seg.End {
			return seg, true
		}
	}
	return symbol.Segment{}, false
}

func (db *DB) XrefsTo(ea uint64) []symbol.Xref {
	db.mu.RLock()
	defer db.mu.RUnlock()
	code, data := db.codeXrefs[ea], db.dataXrefs[ea]
	out := make([]symbol.Xref, 0, len(code)+len(data))
	out = append(out, code...)
	return append(out, data...)
}

func (db *DB) ImportModules() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]string(nil), db.modules...)
}

func (db *DB) ImportedNames(module string) []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]string(nil), db.imports[module]...)
}

func (db *DB) FrameOf(fn symbol.Function) (symbol.Frame, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	frame, ok := db.frames[fn.Start]
	return frame, ok
}

// versionSuffix matches symbol versioning and PLT decorations.
var versionSuffix = regexp.MustCompile(`@(@?[A-Za-z0-9_.]+|plt)$`)

// CleanName returns the registered cleaned form of raw, or raw with ELF
// version and PLT decorations removed. It reports false when nothing changed.
func (db *DB) CleanName(ea uint64, raw string) (string, bool) {
	db.mu.RLock()
	cleaned, ok := db.cleaned[ea]
	db.mu.RUnlock()
	if ok {
		return cleaned, cleaned != ""
	}

	cleaned = versionSuffix.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || cleaned == raw {
		return "", false
	}
	return cleaned, true
}
