package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"symres/internal/disasm"
	"symres/internal/elfx"
	"symres/internal/symbol"
	"symres/internal/ui/colorize"
)

func newDisasmCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "disasm <binary> <address|name>",
		Short: "Disassemble a function with resolved references",
		Long: `Disassembles the function containing the address. Named addresses inside
the body are printed as labels; call, jump and data targets are annotated
with their display names.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, args[0], false)
			if err != nil {
				return err
			}
			defer s.Close()

			ea, err := s.resolve(args[1])
			if err != nil {
				return err
			}
			maxInsns, _ := cmd.Flags().GetInt("max")
			start, size, err := s.codeRange(ea, maxInsns)
			if err != nil {
				return err
			}
			code, ok := s.image.SliceVA(start, size)
			if !ok {
				return fmt.Errorf("%#x is not mapped", start)
			}
			stream, err := disasm.Decode(s.arch, code, start)
			if err != nil {
				return err
			}
			if len(stream) > maxInsns {
				stream = stream[:maxInsns]
			}
			writeListing(cmd.OutOrStdout(), s, stream)
			return nil
		},
	}
	c.Flags().IntP("max", "n", 2000, "Maximum number of instructions")
	return c
}

// codeRange picks the bytes to disassemble around ea: the whole containing
// function, or up to maxInsns instructions clipped to the text section.
func (s *session) codeRange(ea uint64, maxInsns int) (start, size uint64, err error) {
	if maxInsns <= 0 {
		return 0, 0, fmt.Errorf("--max must be positive, got %d", maxInsns)
	}
	if fn, ok := s.db.FunctionContaining(ea); ok {
		return fn.Start, fn.End - fn.Start, nil
	}
	text := s.image.Text
	if !text.Contains(ea) {
		return 0, 0, fmt.Errorf("%#x is outside every function and the text section", ea)
	}
	size = min(uint64(maxInsns)*uint64(s.arch.MaxInstLen()), text.VA+text.Size-ea)
	return ea, size, nil
}

func writeListing(w io.Writer, s *session, stream disasm.Stream) {
	for _, in := range stream {
		if sym, ok := s.loc.Find(in.VA); ok {
			fmt.Fprintf(w, "\n%s:\n", paintName(sym.Name()))
		}
		comment := ""
		switch in.Ref.Kind {
		case disasm.RefNone:
		case disasm.RefData:
			comment = s.dataComment(in.Ref.Target)
		default:
			comment = s.targetName(in.Ref.Target)
		}
		fmt.Fprintln(w, colorize.Line(in.VA, in.Text, comment, s.arch))
	}
}

// targetName is the display name of a reference target, falling back to
// function+offset and finally the bare address.
func (s *session) targetName(ea uint64) string {
	if sym, ok := s.loc.Find(ea); ok {
		return sym.Name()
	}
	if fn, ok := s.loc.FindFunction(ea); ok {
		return fmt.Sprintf("%s+%#x", fn.Symbol().RawName(), ea-fn.Address())
	}
	return hex(ea)
}

// dataComment prefers a symbol name and otherwise shows the string literal
// at a read-only target.
func (s *session) dataComment(ea uint64) string {
	if _, named := s.db.NameAt(ea); named || s.image == nil {
		return s.targetName(ea)
	}
	if seg, ok := s.db.SegmentOf(ea); ok && seg.Perm&symbol.PermWrite == 0 {
		if str, ok := s.image.CString(ea, elfx.MaxStringLength); ok && len(str) >= minLiteral {
			return `"` + elfx.EscapeUnprintable([]byte(str)) + `"`
		}
	}
	return s.targetName(ea)
}

const minLiteral = 2
