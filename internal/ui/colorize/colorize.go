// Package colorize highlights disassembly listings and C declarations for
// terminal output. Setting SYMRES_NO_COLOR disables all highlighting.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"symres/internal/disasm"
)

// EnvNoColor disables highlighting when non-empty.
const EnvNoColor = "SYMRES_NO_COLOR"

// Enabled reports whether output should be highlighted.
func Enabled() bool {
	return os.Getenv(EnvNoColor) == ""
}

func firstLexer(names ...string) chroma.Lexer {
	for _, name := range names {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func assemblyLexer(arch disasm.Arch) chroma.Lexer {
	if arch == disasm.ArchARM64 {
		return firstLexer("armasm", "gas", "nasm")
	}
	// x86 listings use Intel syntax.
	return firstLexer("nasm", "gas")
}

func style() *chroma.Style {
	for _, name := range []string{DisasmDark.Name, "dracula", "monokai"} {
		if s := styles.Get(name); s != nil {
			return s
		}
	}
	return styles.Fallback
}

func formatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if f := formatters.Get(name); f != nil {
			return f
		}
	}
	return formatters.Fallback
}

func highlight(lexer chroma.Lexer, code string) (string, error) {
	if !Enabled() || lexer == nil {
		return code, nil
	}
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := formatter().Format(&buf, style(), it); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// Assembly highlights a block of disassembly for arch.
func Assembly(code string, arch disasm.Arch) (string, error) {
	return highlight(assemblyLexer(arch), code)
}

// Declaration highlights a C declaration. On failure the input is returned.
func Declaration(decl string) string {
	out, err := highlight(firstLexer("c", "cpp"), decl)
	if err != nil {
		return decl
	}
	return strings.TrimRight(out, "\n")
}

// Line renders one listing line: a gray address, the highlighted
// instruction and an optional trailing comment.
func Line(addr uint64, text, comment string, arch disasm.Arch) string {
	if !Enabled() {
		if comment == "" {
			return fmt.Sprintf("%x  %s", addr, text)
		}
		return fmt.Sprintf("%x  %-40s ; %s", addr, text, comment)
	}

	inst, err := Assembly(text, arch)
	if err != nil {
		inst = text
	}
	inst = strings.TrimRight(inst, "\n")
	line := fmt.Sprintf("\033[38;2;79;79;79m%x\033[0m  %s", addr, inst)
	if comment != "" {
		pad := max(40-VisibleLen(inst), 0)
		line += strings.Repeat(" ", pad) + fmt.Sprintf(" \033[38;2;235;194;237m; %s\033[0m", comment)
	}
	return line
}

// Strip removes ANSI escape sequences.
func Strip(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// VisibleLen counts the runes of s that are not part of an escape sequence.
func VisibleLen(s string) int {
	return len([]rune(Strip(s)))
}
