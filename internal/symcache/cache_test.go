package symcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"symres/internal/database"
	"symres/internal/demangler"
	"symres/internal/symbol"
)

func newFixture(t *testing.T) (*database.DB, *Cache) {
	t.Helper()
	db := database.New()
	require.True(t, db.AddFunction(symbol.Function{Start: 0x1000, End: 0x1040}))
	db.SetName(0x1000, "_ZN3Foo3barEv")
	db.SetName(0x2000, "puts")
	db.AddSegment(symbol.Segment{Name: ".text", Start: 0x1000, End: 0x3000, Perm: symbol.PermRead | symbol.PermExec})

	loc := symbol.NewLocator(db, symbol.WithDemangler(demangler.Demangler{}))
	c, err := New(loc, db, 16)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return db, c
}

func TestResolve(t *testing.T) {
	_, c := newFixture(t)

	e, ok := c.Resolve(0x1000)
	require.True(t, ok)
	require.Equal(t, Entry{
		Address:    0x1000,
		RawName:    "_ZN3Foo3barEv",
		Name:       "Foo::bar",
		IsFunction: true,
		IsReadOnly: true,
	}, e)
	require.Equal(t, 1, c.Len())

	_, ok = c.Resolve(0x1004)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
}

func TestRenameEvictsEntry(t *testing.T) {
	db, c := newFixture(t)
	c.Resolve(0x1000)
	c.Resolve(0x2000)
	require.Equal(t, 2, c.Len())

	db.SetName(0x1000, "run")
	require.Equal(t, 1, c.Len())
	e, _ := c.Resolve(0x1000)
	require.Equal(t, "run", e.Name)
}

func TestStructuralChangePurges(t *testing.T) {
	db, c := newFixture(t)
	e, _ := c.Resolve(0x2000)
	require.False(t, e.IsImport)

	db.AddImport("libc.so.6", "puts")
	require.Zero(t, c.Len())
	e, _ = c.Resolve(0x2000)
	require.True(t, e.IsImport)
	require.Equal(t, "__imp_puts", e.Name)

	db.AddXref(0x1010, 0x2000, symbol.XrefJumpNear)
	e, _ = c.Resolve(0x2000)
	require.True(t, e.IsLabel)
}

func TestCloseStopsInvalidation(t *testing.T) {
	db, c := newFixture(t)
	c.Resolve(0x1000)
	c.Close()

	db.SetName(0x1000, "run")
	e, _ := c.Resolve(0x1000)
	require.Equal(t, "Foo::bar", e.Name, "stale entry kept once detached")

	c.Purge()
	e, _ = c.Resolve(0x1000)
	require.Equal(t, "run", e.Name)
}
