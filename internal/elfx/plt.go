package elfx

import (
	"debug/elf"
	"encoding/binary"
)

const pltEntrySize = 16

// parsePLTStubs builds the PLT address -> GOT slot mapping for arm64, and the
// slot layout for x86, where stubs are matched to relocations by index.
func (im *Image) parsePLTStubs() {
	switch im.Machine {
	case elf.EM_AARCH64:
		// PLT[0] is the resolver; function stubs follow, 16 bytes each.
		for i := uint64(1); i*pltEntrySize < im.PLT.Size; i++ {
			stubAddr := im.PLT.VA + i*pltEntrySize
			if gotAddr, ok := im.parseARM64Stub(stubAddr); ok {
				im.PLTStubs = append(im.PLTStubs, PLTStub{Addr: stubAddr, GOTAddr: gotAddr, Index: int(i)})
			}
		}
	case elf.EM_X86_64, elf.EM_386:
		// With IBT the callable stubs live in .plt.sec and have no resolver slot.
		base, first := im.PLT.VA, uint64(1)
		size := im.PLT.Size
		if im.PLTSec.Size != 0 {
			base, first, size = im.PLTSec.VA, 0, im.PLTSec.Size
		}
		for i := first; i*pltEntrySize < size; i++ {
			im.PLTStubs = append(im.PLTStubs, PLTStub{Addr: base + i*pltEntrySize, Index: int(i - first)})
		}
	}
}

// parsePLTRelocations reads .rela.plt or .rel.plt and pairs each jump slot
// relocation with its stub.
func (im *Image) parsePLTRelocations() {
	if im.File == nil {
		return
	}
	rela := true
	section := im.File.Section(".rela.plt")
	if section == nil {
		rela = false
		if section = im.File.Section(".rel.plt"); section == nil {
			return
		}
	}
	data, err := section.Data()
	if err != nil {
		return
	}
	dynsyms, err := im.File.DynamicSymbols()
	if err != nil {
		return
	}

	is64 := im.File.Class == elf.ELFCLASS64
	order := im.File.ByteOrder
	entrySize := 8
	switch {
	case is64 && rela:
		entrySize = 24
	case is64:
		entrySize = 16
	case rela:
		entrySize = 12
	}

	for i := 0; (i+1)*entrySize <= len(data); i++ {
		entry := data[i*entrySize:]
		var offset uint64
		var symIndex uint32
		if is64 {
			offset = order.Uint64(entry)
			symIndex = uint32(order.Uint64(entry[8:]) >> 32)
		} else {
			offset = uint64(order.Uint32(entry))
			symIndex = order.Uint32(entry[4:]) >> 8
		}

		var symName string
		// DynamicSymbols drops the null symbol at index 0.
		if symIndex > 0 && int(symIndex) <= len(dynsyms) {
			symName = dynsyms[symIndex-1].Name
		}

		im.PLTRels = append(im.PLTRels, PLTRel{
			Offset:   offset,
			SymIndex: symIndex,
			SymName:  symName,
			PLTAddr:  im.stubFor(i, offset),
		})
	}
}

func (im *Image) stubFor(index int, gotAddr uint64) uint64 {
	for _, stub := range im.PLTStubs {
		if im.Machine == elf.EM_AARCH64 {
			if stub.GOTAddr == gotAddr {
				return stub.Addr
			}
		} else if stub.Index == index {
			return stub.Addr
		}
	}
	return 0
}

// parseARM64Stub extracts the GOT address from a standard stub:
//
//	adrp x16, <page>
//	ldr  x17, [x16, #offset]
//	add  x16, x16, #offset
//	br   x17
func (im *Image) parseARM64Stub(pltAddr uint64) (uint64, bool) {
	stub, ok := im.SliceVA(pltAddr, pltEntrySize)
	if !ok {
		return 0, false
	}

	adrp := binary.LittleEndian.Uint32(stub)
	if adrp&0x9f00001f != 0x90000010 {
		return 0, false
	}
	immLo := (adrp >> 29) & 3
	immHi := (adrp >> 5) & 0x7ffff
	page := int64((immHi << 2) | immLo)
	if page&(1<<20) != 0 {
		page |= ^((1 << 21) - 1)
	}
	pageBase := int64(pltAddr&^0xfff) + page<<12

	ldr := binary.LittleEndian.Uint32(stub[4:])
	if ldr&0xffc003ff != 0xf9400211 {
		return 0, false
	}
	offset := ((ldr >> 10) & 0xfff) << 3

	return uint64(pageBase) + uint64(offset), true
}
