package symbol

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Option configures a Locator.
type Option func(*Locator)

// WithDemangler sets the demangler used by SymbolInfo.Name.
func WithDemangler(d Demangler) Option {
	return func(l *Locator) { l.demangler = d }
}

// WithDialect overrides the pinned demangling dialect.
func WithDialect(d Dialect) Option {
	return func(l *Locator) { l.dialect = d }
}

// WithStore sets the node store backing register variables and type annotations.
func WithStore(s Store) Option {
	return func(l *Locator) { l.store = s }
}

// WithTypeParser sets the parser used to read back type annotations.
func WithTypeParser(p TypeParser) Option {
	return func(l *Locator) { l.parser = p }
}

// WithLogger sets the logger for debug output.
func WithLogger(lg *log.Logger) Option {
	return func(l *Locator) { l.log = lg }
}

// Locator finds symbols in a Database.
type Locator struct {
	db        Database
	demangler Demangler
	dialect   Dialect
	store     Store
	parser    TypeParser
	log       *log.Logger
}

// NewLocator returns a Locator querying db.
func NewLocator(db Database, opts ...Option) *Locator {
	l := &Locator{
		db:      db,
		dialect: DefaultDialect,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = log.New(io.Discard)
	}
	return l
}

// Find returns the symbol bound at ea, or false when ea has no name.
func (l *Locator) Find(ea uint64) (*SymbolInfo, bool) {
	name, ok := l.db.NameAt(ea)
	if !ok || name == "" {
		return nil, false
	}
	return &SymbolInfo{loc: l, ea: ea, name: name}, true
}

// FindFunction returns the function containing ea, named by its entry.
func (l *Locator) FindFunction(ea uint64) (*FunctionSymbolInfo, bool) {
	fn, ok := l.db.FunctionContaining(ea)
	if !ok {
		return nil, false
	}

	name := bareFunctionName(l.db.ShortName(fn.Start))
	if name == "" {
		if bound, ok := l.db.NameAt(fn.Start); ok && bound != "" {
			name = bound
		} else {
			name = fmt.Sprintf("%s%X", placeholderPrefix, fn.Start)
		}
	}
	l.log.Debug("found function", "ea", fmt.Sprintf("%#x", ea), "start", fmt.Sprintf("%#x", fn.Start), "name", name)

	return &FunctionSymbolInfo{sym: &SymbolInfo{loc: l, ea: fn.Start, name: name}}, true
}

// bareFunctionName drops the parameter list and any return type or calling
// convention from a short name: "int __cdecl foo(int,char*)" -> "foo".
func bareFunctionName(short string) string {
	if i := strings.IndexByte(short, '('); i >= 0 {
		short = short[:i]
	}
	fields := strings.Fields(short)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
