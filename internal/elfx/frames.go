package elfx

import (
	"debug/dwarf"
	"fmt"
)

// dwOpFbreg is DW_OP_fbreg: a location at a signed offset from the frame base.
const dwOpFbreg = 0x91

// FrameVar is a local variable or parameter addressed off the frame base.
type FrameVar struct {
	Name   string
	Offset int64
}

// Frame is the DWARF view of one function's stack slots.
type Frame struct {
	Entry uint64
	Vars  []FrameVar
}

// Frames reads DWARF subprograms and their frame-base relative locals, keyed
// by entry address. Variable names are qualified by FrameVarName.
func (im *Image) Frames() (map[uint64]Frame, error) {
	frames := make(map[uint64]Frame)
	if im.File == nil {
		return frames, nil
	}
	d, err := im.File.DWARF()
	if err != nil {
		return frames, fmt.Errorf("dwarf: %w", err)
	}

	r := d.Reader()
	depth := 0
	var cur *Frame
	curDepth := 0
	for {
		e, err := r.Next()
		if err != nil {
			return frames, fmt.Errorf("dwarf entry: %w", err)
		}
		if e == nil {
			break
		}
		if e.Tag == 0 {
			depth--
			if cur != nil && depth == curDepth {
				if len(cur.Vars) > 0 {
					frames[cur.Entry] = *cur
				}
				cur = nil
			}
			continue
		}

		switch e.Tag {
		case dwarf.TagSubprogram:
			if cur == nil && e.Children {
				if lowpc, ok := e.Val(dwarf.AttrLowpc).(uint64); ok {
					cur, curDepth = &Frame{Entry: lowpc}, depth
				}
			}
		case dwarf.TagVariable, dwarf.TagFormalParameter:
			if cur != nil {
				name, _ := e.Val(dwarf.AttrName).(string)
				if off, ok := fbregOffset(e); ok && name != "" {
					cur.Vars = append(cur.Vars, FrameVar{Name: FrameVarName(cur.Entry, name), Offset: off})
				}
			}
		}
		if e.Children {
			depth++
		}
	}
	return frames, nil
}

// FrameVarName qualifies a frame member as "$ F<ENTRY>.var". The qualifier
// holds no dot, so stripping through the first one always leaves the variable
// even for subprograms named like "foo.cold" or "pkg.Func".
func FrameVarName(entry uint64, name string) string {
	return fmt.Sprintf("$ F%X.%s", entry, name)
}

func fbregOffset(e *dwarf.Entry) (int64, bool) {
	expr, ok := e.Val(dwarf.AttrLocation).([]byte)
	if !ok || len(expr) < 2 || expr[0] != dwOpFbreg {
		return 0, false
	}
	return sleb128(expr[1:])
}

func sleb128(b []byte) (int64, bool) {
	var v int64
	var shift uint
	for _, c := range b {
		v |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				v |= -1 << shift
			}
			return v, true
		}
		if shift >= 64 {
			break
		}
	}
	return 0, false
}
