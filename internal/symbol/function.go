package symbol

import (
	"fmt"
	"strings"
)

// FunctionSymbolInfo is a symbol located at a function entry. It stays valid
// only while the entry exists in the database; staleness is not re-checked.
type FunctionSymbolInfo struct {
	sym *SymbolInfo
}

// Symbol returns the underlying entry symbol.
func (f *FunctionSymbolInfo) Symbol() *SymbolInfo { return f.sym }

func (f *FunctionSymbolInfo) Address() uint64 { return f.sym.ea }

// FindStackVar returns the name of the frame member at the normalized
// frame offset. On 4-byte targets offsets also match when equal in their
// low 32 bits.
func (f *FunctionSymbolInfo) FindStackVar(offset int64, width uint32) (string, bool) {
	db := f.sym.loc.db
	fn, ok := db.FunctionContaining(f.sym.ea)
	if !ok {
		return "", false
	}
	frame, ok := db.FrameOf(fn)
	if !ok {
		return "", false
	}

	bias := frame.LocalSize + frame.SavedRegsSize
	for _, m := range frame.Members {
		soff := m.Offset - bias
		if soff != offset && !(width == 4 && uint32(soff) == uint32(offset)) {
			continue
		}
		f.sym.loc.log.Debug("stack var", "func", f.sym.name, "offset", offset, "member", m.Name)
		if _, after, found := strings.Cut(m.Name, "."); found {
			return after, true
		}
		return m.Name, true
	}
	return "", false
}

func (f *FunctionSymbolInfo) key(namespace, name string) Key {
	return Key{Namespace: namespace, Function: f.sym.ea, Variable: name}
}

func (f *FunctionSymbolInfo) read(k Key) (string, bool, error) {
	n, err := openKey(f.sym.loc.store, k)
	if err != nil {
		return "", false, err
	}
	v, ok, err := n.Get()
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", k, err)
	}
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

func (f *FunctionSymbolInfo) write(k Key, value string) error {
	n, err := openKey(f.sym.loc.store, k)
	if err != nil {
		return err
	}
	if err := n.Set(value); err != nil {
		return fmt.Errorf("write %q: %w", k, err)
	}
	return nil
}

// FindRegVar returns the saved register variable value for name.
func (f *FunctionSymbolInfo) FindRegVar(name string) (string, bool, error) {
	return f.read(f.key(NamespaceRegVar, name))
}

// SaveRegVar stores value for the register variable name.
func (f *FunctionSymbolInfo) SaveRegVar(name, value string) error {
	return f.write(f.key(NamespaceRegVar, name), value)
}

// SaveSymbolType stores the canonical declaration of t for name. There is
// one slot per variable name; loc does not take part in the key.
func (f *FunctionSymbolInfo) SaveSymbolType(name string, t TypeDescriptor, loc Location) error {
	decl := t.CanonicalName()
	f.sym.loc.log.Debug("save type", "func", f.sym.name, "var", name, "decl", decl, "space", loc.Space, "offset", loc.Offset)
	return f.write(f.key(NamespaceType, name), decl)
}

// FindSymbolType parses the declaration saved for name. Parse errors are
// returned as produced by the type parser.
func (f *FunctionSymbolInfo) FindSymbolType(name string) (TypeDescriptor, bool, error) {
	decl, ok, err := f.read(f.key(NamespaceType, name))
	if err != nil || !ok {
		return nil, false, err
	}
	if f.sym.loc.parser == nil {
		return nil, false, ErrNoTypeParser
	}
	t, err := f.sym.loc.parser.Parse(decl)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}
