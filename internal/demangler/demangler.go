// Package demangler demangles C++ and Rust symbol names under a fixed,
// named option set.
package demangler

import (
	"github.com/ianlancetaylor/demangle"

	"symres/internal/symbol"
)

const (
	DialectNone       symbol.Dialect = "none"
	DialectSimplified symbol.Dialect = "simplified"
	DialectTemplates  symbol.Dialect = "templates"
	DialectFull       symbol.Dialect = symbol.DefaultDialect
)

var (
	optionsNone       = []demangle.Option{}
	optionsSimplified = []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams, demangle.NoTemplateParams}
	optionsTemplates  = []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams}
	optionsFull       = []demangle.Option{demangle.NoClones}
)

// Options returns the demangle options for a dialect. Unknown dialects get
// the full set.
func Options(d symbol.Dialect) []demangle.Option {
	switch d {
	case DialectNone:
		return optionsNone
	case DialectSimplified:
		return optionsSimplified
	case DialectTemplates:
		return optionsTemplates
	default:
		return optionsFull
	}
}

// Valid reports whether d names a known dialect.
func Valid(d symbol.Dialect) bool {
	switch d {
	case DialectNone, DialectSimplified, DialectTemplates, DialectFull:
		return true
	}
	return false
}

// Demangler is stateless.
type Demangler struct{}

var _ symbol.Demangler = Demangler{}

// Demangle returns the demangled name, or false when name is not mangled.
func (Demangler) Demangle(name string, dialect symbol.Dialect) (string, bool) {
	out, err := demangle.ToString(name, Options(dialect)...)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// Signature renders name with its parameter list, or returns it unchanged
// when it is not mangled.
func Signature(name string) string {
	return demangle.Filter(name, demangle.NoClones)
}
