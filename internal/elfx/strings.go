package elfx

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxStringLength bounds CString reads.
const MaxStringLength = 256

// EscapeUnprintable keeps printable runes. Other runes become \uXXXX and
// invalid UTF-8 bytes become \xXX.
func EscapeUnprintable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&sb, "\\x%02X", b[0])
		case unicode.IsPrint(r):
			sb.WriteRune(r)
		default:
			fmt.Fprintf(&sb, "\\u%04X", r)
		}
		b = b[size:]
	}
	return sb.String()
}

// CString reads a NUL-terminated string of at most limit bytes at va, clipped
// to the containing load segment. It fails when va is unmapped or no
// terminator is found within the bound.
func (im *Image) CString(va uint64, limit int) (string, bool) {
	for _, l := range im.Loads {
		if va < l.Vaddr || va >= l.Vaddr+l.Filesz {
			continue
		}
		n := min(uint64(limit), l.Vaddr+l.Filesz-va)
		b, ok := im.SliceVA(va, n)
		if !ok {
			return "", false
		}
		i := strings.IndexByte(string(b), 0)
		if i < 0 {
			return "", false
		}
		return string(b[:i]), true
	}
	return "", false
}
