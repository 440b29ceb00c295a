package disasm

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
)

// reAddImm matches the immediate of an ADD (immediate) operand.
var reAddImm = regexp.MustCompile(`^#(0x[0-9a-fA-F]+|\d+)(?:, LSL #(\d+))?$`)

func decodeARM64(code []byte, va uint64) Stream {
	var out Stream
	// pages holds registers loaded by ADRP and not overwritten since.
	pages := make(map[arm64asm.Reg]uint64)
	pc := va
	for i := 0; i+4 <= len(code); i, pc = i+4, pc+4 {
		inst, err := arm64asm.Decode(code[i : i+4])
		if err != nil {
			continue
		}
		ref := arm64Ref(inst, pc)
		if ref.Kind == RefNone {
			ref = pageOffsetRef(inst, pages)
		}
		trackPages(inst, pc, pages)

		out = append(out, Inst{
			VA:   pc,
			Len:  4,
			Text: arm64asm.GNUSyntax(inst),
			Op:   strings.ToLower(inst.Op.String()),
			Ref:  ref,
		})
	}
	return out
}

func arm64Ref(inst arm64asm.Inst, pc uint64) Ref {
	if inst.Op == arm64asm.ADRP {
		return Ref{}
	}
	rel, ok := lastPCRel(inst)
	if !ok {
		return Ref{}
	}
	target := uint64(int64(pc) + int64(rel))
	switch inst.Op {
	case arm64asm.BL:
		return Ref{Target: target, Kind: RefCall}
	case arm64asm.B, arm64asm.CBZ, arm64asm.CBNZ, arm64asm.TBZ, arm64asm.TBNZ:
		return Ref{Target: target, Kind: RefJump}
	case arm64asm.ADR, arm64asm.LDR, arm64asm.LDRSW:
		return Ref{Target: target, Kind: RefData}
	}
	return Ref{}
}

// pageOffsetRef resolves "add xd, xn, #imm" where xn holds an ADRP page.
func pageOffsetRef(inst arm64asm.Inst, pages map[arm64asm.Reg]uint64) Ref {
	if inst.Op != arm64asm.ADD || inst.Args[2] == nil {
		return Ref{}
	}
	rn, ok := regOf(inst.Args[1])
	if !ok {
		return Ref{}
	}
	page, ok := pages[rn]
	if !ok {
		return Ref{}
	}
	imm, ok := inst.Args[2].(arm64asm.ImmShift)
	if !ok {
		return Ref{}
	}
	m := reAddImm.FindStringSubmatch(imm.String())
	if m == nil {
		return Ref{}
	}
	off, err := strconv.ParseUint(m[1], 0, 64)
	if err != nil {
		return Ref{}
	}
	if m[2] != "" {
		shift, _ := strconv.Atoi(m[2])
		off <<= uint(shift)
	}
	return Ref{Target: page + off, Kind: RefData}
}

// trackPages records ADRP results and forgets registers as they are
// overwritten. Calls clobber everything.
func trackPages(inst arm64asm.Inst, pc uint64, pages map[arm64asm.Reg]uint64) {
	switch inst.Op {
	case arm64asm.ADRP:
		rd, ok := regOf(inst.Args[0])
		rel, relOK := lastPCRel(inst)
		if ok && relOK {
			pages[rd] = uint64(int64(pc&^0xfff) + int64(rel))
		}
		return
	case arm64asm.BL, arm64asm.BLR, arm64asm.RET:
		clear(pages)
		return
	}
	if rd, ok := regOf(inst.Args[0]); ok {
		delete(pages, rd)
	}
}

func regOf(arg arm64asm.Arg) (arm64asm.Reg, bool) {
	switch a := arg.(type) {
	case arm64asm.Reg:
		return a, true
	case arm64asm.RegSP:
		return arm64asm.Reg(a), true
	}
	return 0, false
}

func lastPCRel(inst arm64asm.Inst) (arm64asm.PCRel, bool) {
	for i := len(inst.Args) - 1; i >= 0; i-- {
		if inst.Args[i] == nil {
			continue
		}
		rel, ok := inst.Args[i].(arm64asm.PCRel)
		return rel, ok
	}
	return 0, false
}
