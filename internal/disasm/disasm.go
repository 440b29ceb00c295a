// Package disasm defines a common instruction representation used
// across architecture-specific disassemblers, and linear decoders that
// extract branch, call and data references.
package disasm

import (
	"debug/elf"
	"fmt"
)

// Arch selects the decoder.
type Arch int

const (
	ArchUnknown Arch = iota
	ArchARM64
	ArchAMD64
	Arch386
)

func (a Arch) String() string {
	switch a {
	case ArchARM64:
		return "arm64"
	case ArchAMD64:
		return "amd64"
	case Arch386:
		return "386"
	default:
		return "unknown"
	}
}

// ArchOf maps an ELF machine to a decoder.
func ArchOf(m elf.Machine) Arch {
	switch m {
	case elf.EM_AARCH64:
		return ArchARM64
	case elf.EM_X86_64:
		return ArchAMD64
	case elf.EM_386:
		return Arch386
	default:
		return ArchUnknown
	}
}

// MaxInstLen is the longest encoding the decoder for a can produce.
func (a Arch) MaxInstLen() int {
	switch a {
	case ArchAMD64, Arch386:
		return 15
	default:
		return 4
	}
}

// RefKind classifies an instruction's outgoing reference.
type RefKind int

const (
	RefNone RefKind = iota
	RefJump
	RefCall
	RefData
)

// Ref is an outgoing reference with a statically known target.
type Ref struct {
	Target uint64
	Kind   RefKind
}

// Inst is a simplified decoded instruction.
type Inst struct {
	VA   uint64 // virtual address of instruction
	Len  int
	Text string // formatted disassembly string
	Op   string // mnemonic in lowercase
	Ref  Ref
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Decode linearly decodes code starting at va. Bytes that fail to decode
// are skipped by the architecture's minimum instruction length.
func Decode(arch Arch, code []byte, va uint64) (Stream, error) {
	switch arch {
	case ArchARM64:
		return decodeARM64(code, va), nil
	case ArchAMD64:
		return decodeX86(code, va, 64), nil
	case Arch386:
		return decodeX86(code, va, 32), nil
	default:
		return nil, fmt.Errorf("unsupported architecture %s", arch)
	}
}

// Refs returns only the instructions that carry a reference.
func (s Stream) Refs() Stream {
	var out Stream
	for _, in := range s {
		if in.Ref.Kind != RefNone {
			out = append(out, in)
		}
	}
	return out
}
