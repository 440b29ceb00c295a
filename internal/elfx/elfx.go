// Package elfx provides helpers for opening ELF binaries, locating sections,
// reading symbol and import tables, and mapping virtual addresses to file offsets.
package elfx

import (
	"debug/elf"
	"fmt"
	"os"
	"strings"
	"syscall"
)

type Image struct {
	Path     string
	File     *elf.File
	All      []byte
	Machine  elf.Machine
	Loads    []Seg
	Sections []Section
	Text     Section
	PLT      Section
	PLTSec   Section
	Dynsyms  []Sym
	Syms     []Sym
	PLTStubs []PLTStub
	PLTRels  []PLTRel
	Imported []elf.ImportedSymbol
	f        *os.File
}

type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
	Flags         elf.SectionFlag
}

// Contains reports whether va lies inside the section.
func (s Section) Contains(va uint64) bool {
	return s.Size != 0 && va >= s.VA && va < s.VA+s.Size
}

type Sym struct {
	Name  string
	Addr  uint64
	Size  uint64
	Func  bool
	IsPLT bool
}

type PLTStub struct {
	Addr    uint64
	GOTAddr uint64
	Index   int
}

type PLTRel struct {
	Offset   uint64
	SymIndex uint32
	SymName  string
	PLTAddr  uint64
}

func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	im := &Image{Path: path, File: f, All: all, Machine: f.Machine, f: of}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Flags:  p.Flags,
		})
	}

	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Size == 0 {
			continue
		}
		sec := Section{Name: s.Name, VA: s.Addr, Off: s.Offset, Size: s.Size, Flags: s.Flags}
		im.Sections = append(im.Sections, sec)
		switch s.Name {
		case ".text":
			im.Text = sec
		case ".plt":
			im.PLT = sec
		case ".plt.sec":
			im.PLTSec = sec
		}
	}

	im.Dynsyms = readSymbols(f.DynamicSymbols)
	im.Syms = readSymbols(f.Symbols)
	// Static binaries have no dynamic section.
	im.Imported, _ = f.ImportedSymbols()

	im.parsePLTStubs()
	im.parsePLTRelocations()

	if im.Text.Size == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{Name: "LOAD(exec)", VA: l.Vaddr, Off: l.Off, Size: l.Filesz, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR}
				break
			}
		}
	}
	return im, nil
}

// Close unmaps the memory and closes the underlying files.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil {
		err1 = syscall.Munmap(im.All)
		im.All = nil
	}
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if im.File != nil {
		err3 := im.File.Close()
		if err3 != nil && err2 == nil {
			err2 = err3
		}
		im.File = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// VA2Off translates a virtual address into a file offset
// using PT_LOAD segments. It returns false if VA is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns a subslice of the mapped file corresponding to the virtual address range [va, va+size).
// It returns (nil, false) if the VA is unmapped or the range is out of bounds.
func (im *Image) SliceVA(va uint64, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}
	end := off + size
	if end > uint64(len(im.All)) {
		return nil, false
	}
	return im.All[off:end], true
}

// Imports groups imported symbol names by the library that provides them.
// Symbols without version information land under UnresolvedLibrary.
func (im *Image) Imports() map[string][]string {
	out := make(map[string][]string)
	for _, s := range im.Imported {
		lib := s.Library
		if lib == "" {
			lib = UnresolvedLibrary
		}
		out[lib] = append(out[lib], s.Name)
	}
	return out
}

// UnresolvedLibrary names the import module of unversioned imports.
const UnresolvedLibrary = "<unresolved>"

// PLTName returns the import name bound to the PLT stub at va.
func (im *Image) PLTName(va uint64) (string, bool) {
	for _, rel := range im.PLTRels {
		if rel.PLTAddr == va && rel.SymName != "" {
			return rel.SymName, true
		}
	}
	return "", false
}

func readSymbols(read func() ([]elf.Symbol, error)) []Sym {
	syms, err := read()
	if err != nil {
		return nil
	}
	var out []Sym
	for _, s := range syms {
		// Skip undefined symbols
		if s.Value == 0 || s.Section == elf.SHN_UNDEF {
			continue
		}
		out = append(out, Sym{
			Name:  s.Name,
			Addr:  s.Value,
			Size:  s.Size,
			Func:  elf.ST_TYPE(s.Info) == elf.STT_FUNC,
			IsPLT: strings.HasSuffix(s.Name, "@plt"),
		})
	}
	return out
}
