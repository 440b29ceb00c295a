package disasm

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

func decodeX86(code []byte, va uint64, mode int) Stream {
	var out Stream
	for i := 0; i < len(code); {
		pc := va + uint64(i)
		inst, err := x86asm.Decode(code[i:], mode)
		if err != nil || inst.Len == 0 {
			i++
			continue
		}
		out = append(out, Inst{
			VA:   pc,
			Len:  inst.Len,
			Text: x86asm.IntelSyntax(inst, pc, nil),
			Op:   strings.ToLower(inst.Op.String()),
			Ref:  x86Ref(inst, pc),
		})
		i += inst.Len
	}
	return out
}

func x86Ref(inst x86asm.Inst, pc uint64) Ref {
	next := int64(pc) + int64(inst.Len)
	for _, arg := range inst.Args {
		switch a := arg.(type) {
		case x86asm.Rel:
			target := uint64(next + int64(a))
			switch {
			case inst.Op == x86asm.CALL:
				return Ref{Target: target, Kind: RefCall}
			case isX86Jump(inst.Op):
				return Ref{Target: target, Kind: RefJump}
			}
		case x86asm.Mem:
			if a.Base == x86asm.RIP {
				return Ref{Target: uint64(next + a.Disp), Kind: RefData}
			}
		}
	}
	return Ref{}
}

func isX86Jump(op x86asm.Op) bool {
	switch op {
	case x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return true
	}
	return strings.HasPrefix(op.String(), "J")
}
