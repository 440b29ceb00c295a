package cmd

import (
	"bytes"
	"debug/elf"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"symres/internal/database"
	"symres/internal/demangler"
	"symres/internal/disasm"
	"symres/internal/elfx"
	"symres/internal/symbol"
	"symres/internal/symcache"
	"symres/internal/ui/colorize"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(colorize.EnvNoColor, "1")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func testSession(t *testing.T) *session {
	t.Helper()
	db := database.New()
	db.SetShortNamer(demangler.Signature)
	require.True(t, db.AddFunction(symbol.Function{Start: 0x1000, End: 0x1010}))
	require.True(t, db.AddFunction(symbol.Function{Start: 0x2000, End: 0x2010}))
	db.SetName(0x1000, "_ZN3App3runEv")
	db.SetName(0x1008, "loc_1008")
	db.SetName(0x2000, "puts")
	db.AddSegment(symbol.Segment{Name: ".text", Start: 0x1000, End: 0x3000, Perm: symbol.PermRead | symbol.PermExec})
	db.AddImport("libc.so.6", "puts")
	db.AddXref(0x1004, 0x1008, symbol.XrefJumpNear)

	s := &session{
		db:   db,
		loc:  symbol.NewLocator(db, symbol.WithDemangler(demangler.Demangler{})),
		arch: disasm.ArchAMD64,
	}
	cache, err := symcache.New(s.loc, db, 0)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	s.cache = cache
	return s
}

func TestSchema(t *testing.T) {
	out, err := runCmd(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	require.Contains(t, out, `"dialect"`)
	require.Contains(t, out, `"cacheSize"`)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(envStore, "/tmp/meta.db")
	t.Setenv(envDialect, "simplified")
	t.Setenv(envCache, "128")
	t.Setenv(colorize.EnvNoColor, "")

	root := newRootCmd()
	require.NoError(t, root.ParseFlags(nil))
	cfg, err := loadConfig(root)
	require.NoError(t, err)
	require.Equal(t, Config{Store: "/tmp/meta.db", Dialect: "simplified", CacheSize: 128}, cfg)
	require.Equal(t, "/tmp/meta.db", cfg.storePath("/bin/true"))

	require.NoError(t, root.ParseFlags([]string{"--dialect=templates", "--debug"}))
	cfg, err = loadConfig(root)
	require.NoError(t, err)
	require.Equal(t, "templates", cfg.Dialect)
	require.True(t, cfg.Debug)

	t.Setenv(envStore, "")
	cfg, _ = loadConfig(root)
	require.Equal(t, "/bin/true.symdb", cfg.storePath("/bin/true"))
}

func TestLoadConfigRejects(t *testing.T) {
	t.Setenv(envDialect, "klingon")
	_, err := loadConfig(newRootCmd())
	require.ErrorContains(t, err, "unknown dialect")

	t.Setenv(envDialect, "")
	t.Setenv(envCache, "-1")
	_, err = loadConfig(newRootCmd())
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	s := testSession(t)
	tests := []struct {
		arg  string
		want uint64
	}{
		{arg: "0x1008", want: 0x1008},
		{arg: "0X2000", want: 0x2000},
		{arg: "_ZN3App3runEv", want: 0x1000},
		{arg: "App::run", want: 0x1000},
		{arg: "__imp_puts", want: 0x2000},
		{arg: "abc0", want: 0xabc0},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := s.resolve(tt.arg)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := s.resolve("nosuchthing")
	require.Error(t, err)
	_, err = s.resolve("0xzz")
	require.Error(t, err)
}

func TestResolveSeesRenames(t *testing.T) {
	s := testSession(t)
	ea, err := s.resolve("App::run")
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), ea)
	require.Positive(t, s.cache.Len())

	s.db.SetName(0x1000, "_ZN3App4stopEv")
	_, err = s.resolve("App::run")
	require.Error(t, err)
	ea, err = s.resolve("App::stop")
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), ea)
}

func TestCodeRange(t *testing.T) {
	s := testSession(t)
	s.image = &elfx.Image{Text: elfx.Section{Name: ".text", VA: 0x1000, Size: 0x2000}}

	for _, n := range []int{0, -1} {
		_, _, err := s.codeRange(0x1000, n)
		require.Error(t, err, "max %d", n)
	}

	start, size, err := s.codeRange(0x1004, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), start, "whole containing function")
	require.Equal(t, uint64(0x10), size)

	start, size, err = s.codeRange(0x1800, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1800), start)
	require.Equal(t, uint64(4*15), size)

	_, size, err = s.codeRange(0x2ff8, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(8), size, "clipped to the end of text")

	_, _, err = s.codeRange(0x3000, 10)
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	t.Setenv(colorize.EnvNoColor, "1")
	s := testSession(t)

	out := describe(s, 0x1008)
	require.Equal(t, InfoOutput{
		Address:    "0x1008",
		RawName:    "loc_1008",
		Name:       "loc_1008",
		IsLabel:    true,
		IsReadOnly: true,
		Segment:    ".text",
		Function:   &FunctionInfo{Address: "0x1000", Name: "App::run", Offset: 8},
	}, out)

	out = describe(s, 0x2000)
	require.True(t, out.IsImport)
	require.True(t, out.IsFunction)
	require.Equal(t, uint64(0x10), out.FunctionSize)
	require.Equal(t, "__imp_puts", out.Name)

	out = describe(s, 0x5000)
	require.Equal(t, InfoOutput{Address: "0x5000"}, out)
}

func TestWriteListing(t *testing.T) {
	t.Setenv(colorize.EnvNoColor, "1")
	s := testSession(t)
	stream := disasm.Stream{
		{VA: 0x1000, Text: "call 0x2000", Ref: disasm.Ref{Target: 0x2000, Kind: disasm.RefCall}},
		{VA: 0x1004, Text: "jmp 0x1008", Ref: disasm.Ref{Target: 0x1008, Kind: disasm.RefJump}},
		{VA: 0x1008, Text: "lea rax, [rip+0x4]", Ref: disasm.Ref{Target: 0x100c, Kind: disasm.RefData}},
		{VA: 0x100c, Text: "ret"},
	}
	var buf bytes.Buffer
	writeListing(&buf, s, stream)
	out := buf.String()

	require.Contains(t, out, "\nApp::run:\n")
	require.Contains(t, out, "\nloc_1008:\n")
	require.Contains(t, out, "; __imp_puts")
	require.Contains(t, out, "; App::run+0xc")
	require.Contains(t, out, "100c  ret\n")
}

func TestInfoSelf(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the test binary")
	}
	bin, err := os.Executable()
	if err != nil {
		t.Skipf("no executable path: %v", err)
	}
	if f, err := elf.Open(bin); err != nil {
		t.Skipf("test binary is not ELF: %v", err)
	} else {
		f.Close()
	}

	out, err := runCmd(t, "info", "--json", bin, "symres/internal/symres/cmd.TestInfoSelf")
	if err != nil && strings.Contains(err.Error(), "no symbol") {
		t.Skip("binary is stripped")
	}
	require.NoError(t, err)

	var info InfoOutput
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.True(t, info.IsFunction)
	require.NotZero(t, info.FunctionSize)
	require.Equal(t, "symres/internal/symres/cmd.TestInfoSelf", info.Name)
}

func TestRegVarRoundTripSelf(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the test binary")
	}
	bin, err := os.Executable()
	if err != nil {
		t.Skipf("no executable path: %v", err)
	}
	if f, err := elf.Open(bin); err != nil {
		t.Skipf("test binary is not ELF: %v", err)
	} else {
		f.Close()
	}
	store := filepath.Join(t.TempDir(), "meta.symdb")
	fn := "symres/internal/symres/cmd.TestRegVarRoundTripSelf"

	if _, err := runCmd(t, "regvar", "set", "--store", store, bin, fn, "v1", "rbx"); err != nil {
		if strings.Contains(err.Error(), "no symbol") {
			t.Skip("binary is stripped")
		}
		t.Fatal(err)
	}
	out, err := runCmd(t, "regvar", "get", "--store", store, bin, fn, "v1")
	require.NoError(t, err)
	require.Equal(t, "rbx\n", out)

	out, err = runCmd(t, "type", "set", "--store", store, bin, fn, "p", "const", "char", "*")
	require.NoError(t, err)
	require.Equal(t, "const char *\n", out)
	out, err = runCmd(t, "type", "get", "--store", store, bin, fn, "p")
	require.NoError(t, err)
	require.Equal(t, "const char *\n", out)
}

func TestDataComment(t *testing.T) {
	s := testSession(t)
	s.db.AddSegment(symbol.Segment{Name: ".rodata", Start: 0x4000, End: 0x4010, Perm: symbol.PermRead})
	s.db.AddSegment(symbol.Segment{Name: ".data", Start: 0x4010, End: 0x4020, Perm: symbol.PermRead | symbol.PermWrite})
	all := []byte("hi\tthere\x00\x00\x00\x00\x00\x00\x00mutable\x00")
	s.image = &elfx.Image{All: all, Loads: []elfx.Seg{{Vaddr: 0x4000, Off: 0, Filesz: uint64(len(all))}}}

	require.Equal(t, `"hi\u0009there"`, s.dataComment(0x4000))
	require.Equal(t, "0x4009", s.dataComment(0x4009), "empty string")
	require.Equal(t, "0x4010", s.dataComment(0x4010), "writable segment")

	s.db.SetName(0x4000, "kGreeting")
	require.Equal(t, "kGreeting", s.dataComment(0x4000))
}
