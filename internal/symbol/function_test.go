package symbol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"symres/internal/database"
	"symres/internal/nodestore"
	"symres/internal/symbol"
	"symres/internal/typedecl"
)

func TestFindStackVar(t *testing.T) {
	db, loc := fixture(t)
	db.SetFrame(fnMain, symbol.Frame{
		LocalSize:     0x20,
		SavedRegsSize: 0x8,
		Members: []symbol.FrameMember{
			{Name: "$ F401000.var_18", Offset: 0x10},
			{Name: "$ F401000.var_8", Offset: 0x20},
			{Name: "saved_fp", Offset: 0x28},
			{Name: "$ F401000.arg_0", Offset: 0x30},
			{Name: "dup.second", Offset: 0x30},
		},
	})
	fn, ok := loc.FindFunction(fnMain)
	require.True(t, ok)

	tests := []struct {
		name   string
		offset int64
		width  uint32
		want   string
		ok     bool
	}{
		{name: "local", offset: -8, width: 8, want: "var_8", ok: true},
		{name: "deeper local", offset: -0x18, width: 8, want: "var_18", ok: true},
		{name: "no dot keeps full name", offset: 0, width: 8, want: "saved_fp", ok: true},
		{name: "first match wins", offset: 8, width: 8, want: "arg_0", ok: true},
		{name: "no member", offset: -4, width: 8, ok: false},
		{name: "32-bit wrapped offset", offset: 0xfffffff8, width: 4, want: "var_8", ok: true},
		{name: "wrapped offset ignored on 64-bit", offset: 0xfffffff8, width: 8, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fn.FindStackVar(tt.offset, tt.width)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFindStackVarLiveLayout(t *testing.T) {
	db, loc := fixture(t)
	fn, _ := loc.FindFunction(fnMain)

	_, ok := fn.FindStackVar(-8, 8)
	require.False(t, ok, "no frame yet")

	db.SetFrame(fnMain, symbol.Frame{Members: []symbol.FrameMember{{Name: "x.count", Offset: -8}}})
	name, ok := fn.FindStackVar(-8, 8)
	require.True(t, ok)
	require.Equal(t, "count", name)

	db.SetFrame(fnMain, symbol.Frame{Members: []symbol.FrameMember{{Name: "x.total", Offset: -8}}})
	name, _ = fn.FindStackVar(-8, 8)
	require.Equal(t, "total", name)
}

func TestRegVarRoundTrip(t *testing.T) {
	_, loc := fixture(t)
	fn, _ := loc.FindFunction(fnMain)

	require.NoError(t, fn.SaveRegVar("v1", "eax"))
	v, ok, err := fn.FindRegVar("v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "eax", v)

	_, ok, err = fn.FindRegVar("unset")
	require.NoError(t, err)
	require.False(t, ok)

	// Records are scoped to the function.
	other, _ := loc.FindFunction(fnMember)
	_, ok, err = other.FindRegVar("v1")
	require.NoError(t, err)
	require.False(t, ok)

	// An empty value reads back as unset.
	require.NoError(t, fn.SaveRegVar("v1", ""))
	_, ok, err = fn.FindRegVar("v1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSymbolTypeRoundTrip(t *testing.T) {
	_, loc := fixture(t)
	fn, _ := loc.FindFunction(fnMain)

	t1, err := typedecl.Parse("int *p")
	require.NoError(t, err)
	t2, err := typedecl.Parse("struct node *[4]")
	require.NoError(t, err)

	require.NoError(t, fn.SaveSymbolType("v1", t1, symbol.Location{Space: "stack", Offset: -8, Size: 8}))
	require.NoError(t, fn.SaveSymbolType("v1", t2, symbol.Location{Space: "register", Offset: 0, Size: 8}))

	got, ok, err := fn.FindSymbolType("v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, t2.CanonicalName(), got.CanonicalName())
	require.True(t, t2.Equal(got.(*typedecl.Type)))

	_, ok, err = fn.FindSymbolType("unset")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFindSymbolTypeMalformed(t *testing.T) {
	store := nodestore.NewMemory()
	db, _ := fixture(t)
	loc := symbol.NewLocator(db, symbol.WithStore(store), symbol.WithTypeParser(typedecl.Parser{}))
	fn, _ := loc.FindFunction(fnMain)

	// Garbage written by a caller is not validated on save.
	require.NoError(t, fn.SaveSymbolType("bad", rawDecl("int (("), symbol.Location{}))

	_, ok, err := fn.FindSymbolType("bad")
	require.False(t, ok)
	var perr *typedecl.ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "int ((", perr.Input)
}

type rawDecl string

func (r rawDecl) CanonicalName() string { return string(r) }

func TestMetadataSurvivesLocatorRebuild(t *testing.T) {
	store := nodestore.NewMemory()
	db := database.New()
	require.True(t, db.AddFunction(symbol.Function{Start: 0x1000, End: 0x1100}))
	db.SetName(0x1000, "f")

	fn, _ := symbol.NewLocator(db, symbol.WithStore(store)).FindFunction(0x1000)
	require.NoError(t, fn.SaveRegVar("tmp", "rbx"))

	fn, _ = symbol.NewLocator(db, symbol.WithStore(store)).FindFunction(0x1010)
	v, ok, err := fn.FindRegVar("tmp")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "rbx", v)

	n, err := store.Open(symbol.Key{Namespace: symbol.NamespaceRegVar, Function: 0x1000, Variable: "tmp"}.String())
	require.NoError(t, err)
	raw, _, err := n.Get()
	require.NoError(t, err)
	require.Equal(t, "rbx", raw)
}

func TestMetadataWithoutCollaborators(t *testing.T) {
	db, _ := fixture(t)
	fn, _ := symbol.NewLocator(db).FindFunction(fnMain)

	require.ErrorIs(t, fn.SaveRegVar("v", "eax"), symbol.ErrNoStore)
	_, _, err := fn.FindRegVar("v")
	require.ErrorIs(t, err, symbol.ErrNoStore)

	store := nodestore.NewMemory()
	fn, _ = symbol.NewLocator(db, symbol.WithStore(store)).FindFunction(fnMain)
	require.NoError(t, fn.SaveSymbolType("v", typedecl.Base("int"), symbol.Location{}))
	_, _, err = fn.FindSymbolType("v")
	require.ErrorIs(t, err, symbol.ErrNoTypeParser)
}

type failingStore struct{ err error }

func (f failingStore) Open(string) (symbol.Node, error) { return nil, f.err }

func TestStoreErrorsPropagate(t *testing.T) {
	db, _ := fixture(t)
	boom := errors.New("disk on fire")
	fn, _ := symbol.NewLocator(db, symbol.WithStore(failingStore{err: boom})).FindFunction(fnMain)

	require.ErrorIs(t, fn.SaveRegVar("v", "eax"), boom)
	_, _, err := fn.FindSymbolType("v")
	require.ErrorIs(t, err, boom)
}
