package elfx

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"strings"
	"testing"
)

func TestSleb128(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want int64
		ok   bool
	}{
		{name: "small positive", in: []byte{0x02}, want: 2, ok: true},
		{name: "small negative", in: []byte{0x7e}, want: -2, ok: true},
		{name: "two byte positive", in: []byte{0xff, 0x00}, want: 127, ok: true},
		{name: "two byte negative", in: []byte{0x80, 0x7f}, want: -128, ok: true},
		{name: "trailing bytes ignored", in: []byte{0x70, 0x99}, want: -16, ok: true},
		{name: "unterminated", in: []byte{0x80}, ok: false},
		{name: "empty", in: nil, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sleb128(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("sleb128(% x) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSectionContains(t *testing.T) {
	s := Section{Name: ".text", VA: 0x1000, Size: 0x100}
	for va, want := range map[uint64]bool{0xfff: false, 0x1000: true, 0x10ff: true, 0x1100: false} {
		if got := s.Contains(va); got != want {
			t.Errorf("Contains(%#x) = %v, want %v", va, got, want)
		}
	}
	if (Section{VA: 0x1000}).Contains(0x1000) {
		t.Error("empty section contains nothing")
	}
}

func TestSliceVA(t *testing.T) {
	im := &Image{
		All:   []byte{0, 1, 2, 3, 4, 5, 6, 7},
		Loads: []Seg{{Vaddr: 0x4000, Off: 2, Filesz: 4}},
	}
	b, ok := im.SliceVA(0x4001, 2)
	if !ok || len(b) != 2 || b[0] != 3 || b[1] != 4 {
		t.Fatalf("SliceVA = %v, %v", b, ok)
	}
	if _, ok := im.SliceVA(0x3fff, 1); ok {
		t.Error("unmapped VA should fail")
	}
	if _, ok := im.SliceVA(0x4003, 16); ok {
		t.Error("range past end of file should fail")
	}
}

func TestARM64PLTStub(t *testing.T) {
	all := make([]byte, 0x40)
	// adrp x16, #0x1000 ; ldr x17, [x16, #0x18]
	binary.LittleEndian.PutUint32(all[0x10:], 0xb0000010)
	binary.LittleEndian.PutUint32(all[0x14:], 0xf9400e11)

	im := &Image{
		Machine: elf.EM_AARCH64,
		All:     all,
		Loads:   []Seg{{Vaddr: 0x10000, Off: 0, Filesz: 0x40}},
		PLT:     Section{Name: ".plt", VA: 0x10000, Size: 0x30},
	}
	im.parsePLTStubs()

	if len(im.PLTStubs) != 1 {
		t.Fatalf("got %d stubs, want 1: %+v", len(im.PLTStubs), im.PLTStubs)
	}
	stub := im.PLTStubs[0]
	if stub.Addr != 0x10010 || stub.GOTAddr != 0x11018 {
		t.Errorf("stub = %+v, want addr 0x10010 got 0x11018", stub)
	}
	if got := im.stubFor(7, 0x11018); got != 0x10010 {
		t.Errorf("stubFor = %#x, want 0x10010", got)
	}
	if got := im.stubFor(0, 0x22000); got != 0 {
		t.Errorf("stubFor unknown GOT = %#x, want 0", got)
	}
}

func TestX86PLTStubs(t *testing.T) {
	tests := []struct {
		name   string
		plt    Section
		pltSec Section
		want   []uint64
	}{
		{
			name: "lazy plt skips resolver",
			plt:  Section{VA: 0x1020, Size: 0x40},
			want: []uint64{0x1030, 0x1040, 0x1050},
		},
		{
			name:   "plt.sec has no resolver",
			plt:    Section{VA: 0x1020, Size: 0x40},
			pltSec: Section{VA: 0x1060, Size: 0x30},
			want:   []uint64{0x1060, 0x1070, 0x1080},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := &Image{Machine: elf.EM_X86_64, PLT: tt.plt, PLTSec: tt.pltSec}
			im.parsePLTStubs()
			if len(im.PLTStubs) != len(tt.want) {
				t.Fatalf("got %d stubs, want %d", len(im.PLTStubs), len(tt.want))
			}
			for i, want := range tt.want {
				if im.PLTStubs[i].Addr != want || im.PLTStubs[i].Index != i {
					t.Errorf("stub %d = %+v, want addr %#x", i, im.PLTStubs[i], want)
				}
				if got := im.stubFor(i, 0); got != want {
					t.Errorf("stubFor(%d) = %#x, want %#x", i, got, want)
				}
			}
		})
	}
}

func TestPLTName(t *testing.T) {
	im := &Image{PLTRels: []PLTRel{
		{SymName: "puts", PLTAddr: 0x1030},
		{SymName: "", PLTAddr: 0x1040},
	}}
	if name, ok := im.PLTName(0x1030); !ok || name != "puts" {
		t.Errorf("PLTName(0x1030) = %q, %v", name, ok)
	}
	if _, ok := im.PLTName(0x1040); ok {
		t.Error("relocation without a symbol has no name")
	}
}

func TestOpenSelf(t *testing.T) {
	path, err := os.Executable()
	if err != nil {
		t.Skipf("no executable path: %v", err)
	}
	if f, err := elf.Open(path); err != nil {
		t.Skipf("test binary is not ELF: %v", err)
	} else {
		f.Close()
	}

	im, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer im.Close()

	if im.Text.Size == 0 {
		t.Fatal("no executable region found")
	}
	if _, ok := im.SliceVA(im.Text.VA, 16); !ok {
		t.Errorf("cannot read text at %#x", im.Text.VA)
	}

	found := false
	for _, s := range im.Syms {
		if s.Name == "symres/internal/elfx.TestOpenSelf" {
			found = s.Func && s.Size > 0
			break
		}
	}
	if !found {
		t.Skip("binary is stripped")
	}
}

func TestCString(t *testing.T) {
	all := []byte("\x00hello\x00abc")
	im := &Image{All: all, Loads: []Seg{{Vaddr: 0x2000, Off: 0, Filesz: uint64(len(all))}}}

	tests := []struct {
		name string
		va   uint64
		max  int
		want string
		ok   bool
	}{
		{name: "terminated", va: 0x2001, max: 64, want: "hello", ok: true},
		{name: "empty", va: 0x2000, max: 64, want: "", ok: true},
		{name: "runs off segment", va: 0x2007, max: 64, ok: false},
		{name: "longer than bound", va: 0x2001, max: 3, ok: false},
		{name: "unmapped", va: 0x9000, max: 64, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := im.CString(tt.va, tt.max)
			if ok != tt.ok || got != tt.want {
				t.Errorf("CString(%#x) = %q, %v; want %q, %v", tt.va, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEscapeUnprintable(t *testing.T) {
	tests := map[string]string{
		"plain":       "plain",
		"tab\there":   `tab\u0009here`,
		"bad\xffbyte": `bad\xFFbyte`,
		"héllo":       "héllo",
	}
	for in, want := range tests {
		if got := EscapeUnprintable([]byte(in)); got != want {
			t.Errorf("EscapeUnprintable(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFrameVarName(t *testing.T) {
	got := FrameVarName(0x401a20, "argc")
	if got != "$ F401A20.argc" {
		t.Fatalf("FrameVarName = %q", got)
	}
	if _, after, _ := strings.Cut(got, "."); after != "argc" {
		t.Errorf("stripping through the first dot leaves %q", after)
	}
	if _, after, _ := strings.Cut(FrameVarName(0x10, "x.y"), "."); after != "x.y" {
		t.Errorf("dotted variable stripped to %q", after)
	}
}

func TestImportsGroupsByLibrary(t *testing.T) {
	im := &Image{Imported: []elf.ImportedSymbol{
		{Name: "puts", Library: "libc.so.6"},
		{Name: "sqrt", Library: "libm.so.6"},
		{Name: "malloc", Library: "libc.so.6"},
		{Name: "__gmon_start__"},
	}}
	got := im.Imports()
	if len(got) != 3 {
		t.Fatalf("got %d libraries: %v", len(got), got)
	}
	if libc := got["libc.so.6"]; len(libc) != 2 || libc[0] != "puts" || libc[1] != "malloc" {
		t.Errorf("libc imports = %v", libc)
	}
	if un := got[UnresolvedLibrary]; len(un) != 1 || un[0] != "__gmon_start__" {
		t.Errorf("unresolved imports = %v", un)
	}
	if n := len((&Image{}).Imports()); n != 0 {
		t.Errorf("image without imports has %d libraries", n)
	}
}
