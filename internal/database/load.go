package database

import (
	"debug/elf"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"symres/internal/demangler"
	"symres/internal/disasm"
	"symres/internal/elfx"
	"symres/internal/symbol"
)

// LoadStats summarizes what FromImage loaded.
type LoadStats struct {
	Names     int
	Functions int
	Segments  int
	Imports   int
	Frames    int
	Xrefs     int
}

// pltStubSize is the length of one PLT entry on every supported machine.
const pltStubSize = 16

// FromImage builds a database from an ELF image: symbols, functions, PLT
// stubs, allocated sections, imports, DWARF frames and code references.
func FromImage(im *elfx.Image, lg *log.Logger) (*DB, LoadStats) {
	if lg == nil {
		lg = log.New(io.Discard)
	}
	var stats LoadStats
	db := New()
	db.SetShortNamer(demangler.Signature)

	for _, s := range im.Sections {
		perm := symbol.PermRead
		if s.Flags&elf.SHF_WRITE != 0 {
			perm |= symbol.PermWrite
		}
		if s.Flags&elf.SHF_EXECINSTR != 0 {
			perm |= symbol.PermExec
		}
		db.AddSegment(symbol.Segment{Name: s.Name, Start: s.VA, End: s.VA + s.Size, Perm: perm})
		stats.Segments++
	}

	for _, sym := range append(append([]elfx.Sym(nil), im.Syms...), im.Dynsyms...) {
		// "$x"/"$d" are arm mapping symbols, not names.
		if sym.Name == "" || strings.HasPrefix(sym.Name, "$") {
			continue
		}
		if _, ok := db.NameAt(sym.Addr); !ok {
			db.SetName(sym.Addr, sym.Name)
			stats.Names++
		}
		fn := symbol.Function{Start: sym.Addr, End: sym.Addr + sym.Size}
		if sym.IsPLT && sym.Size == 0 {
			fn.End = sym.Addr + pltStubSize
		}
		if (sym.Func || sym.IsPLT) && fn.End > fn.Start && db.AddFunction(fn) {
			stats.Functions++
		}
	}

	for _, stub := range im.PLTStubs {
		name, ok := im.PLTName(stub.Addr)
		if !ok {
			continue
		}
		if _, named := db.NameAt(stub.Addr); !named {
			db.SetName(stub.Addr, name)
			stats.Names++
		}
		if db.AddFunction(symbol.Function{Start: stub.Addr, End: stub.Addr + pltStubSize}) {
			stats.Functions++
		}
	}

	imports := im.Imports()
	libs := lo.Keys(imports)
	sort.Strings(libs)
	for _, lib := range libs {
		db.AddImport(lib, imports[lib]...)
		stats.Imports += len(imports[lib])
	}

	frames, err := im.Frames()
	if err != nil {
		lg.Debug("no frame layouts", "path", im.Path, "err", err)
	}
	for entry, fr := range frames {
		members := make([]symbol.FrameMember, 0, len(fr.Vars))
		for _, v := range fr.Vars {
			members = append(members, symbol.FrameMember{Name: v.Name, Offset: v.Offset})
		}
		db.SetFrame(entry, symbol.Frame{Members: members})
		stats.Frames++
	}

	n, err := loadXrefs(db, im)
	if err != nil {
		lg.Warn("skipping cross-references", "path", im.Path, "err", err)
	}
	stats.Xrefs = n

	lg.Debug("loaded image", "path", im.Path, "names", stats.Names, "functions", stats.Functions,
		"segments", stats.Segments, "imports", stats.Imports, "frames", stats.Frames, "xrefs", stats.Xrefs)
	return db, stats
}

func loadXrefs(db *DB, im *elfx.Image) (int, error) {
	arch := disasm.ArchOf(im.Machine)
	if arch == disasm.ArchUnknown {
		return 0, fmt.Errorf("no decoder for %s", im.Machine)
	}

	n := 0
	for _, fn := range db.Functions() {
		code, ok := im.SliceVA(fn.Start, fn.End-fn.Start)
		if !ok {
			continue
		}
		stream, err := disasm.Decode(arch, code, fn.Start)
		if err != nil {
			return n, err
		}
		for _, in := range stream.Refs() {
			kind := xrefKind(in.Ref.Kind)
			db.AddXref(in.VA, in.Ref.Target, kind)
			n++
			if _, named := db.NameAt(in.Ref.Target); !named {
				if kind == symbol.XrefJumpNear && fn.Contains(in.Ref.Target) {
					db.SetName(in.Ref.Target, fmt.Sprintf("loc_%X", in.Ref.Target))
				}
			}
		}
	}
	return n, nil
}

func xrefKind(k disasm.RefKind) symbol.XrefKind {
	switch k {
	case disasm.RefJump:
		return symbol.XrefJumpNear
	case disasm.RefCall:
		return symbol.XrefCallNear
	case disasm.RefData:
		return symbol.XrefDataRead
	default:
		return symbol.XrefUnknown
	}
}
