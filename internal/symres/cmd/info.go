package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InfoOutput is the JSON form of "symres info".
type InfoOutput struct {
	Address      string        `json:"address"`
	RawName      string        `json:"raw_name,omitempty"`
	Name         string        `json:"name,omitempty"`
	IsFunction   bool          `json:"is_function"`
	IsImport     bool          `json:"is_import"`
	IsLabel      bool          `json:"is_label"`
	IsReadOnly   bool          `json:"is_read_only"`
	FunctionSize uint64        `json:"function_size,omitempty"`
	Segment      string        `json:"segment,omitempty"`
	Function     *FunctionInfo `json:"function,omitempty"`
}

// FunctionInfo names the function containing an address.
type FunctionInfo struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Offset  uint64 `json:"offset"`
}

func newInfoCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "info <binary> <address|name>",
		Short: "Describe the symbol at an address",
		Example: `
symres info ./a.out 0x401136
symres info --json ./a.out main
  `,
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
			out := describe(s, ea)

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printInfo(cmd, out)
			return nil
		},
	}
	c.Flags().BoolP("json", "j", false, "Output as JSON")
	return c
}

func describe(s *session, ea uint64) InfoOutput {
	out := InfoOutput{Address: hex(ea)}
	if seg, ok := s.db.SegmentOf(ea); ok {
		out.Segment = seg.Name
	}
	if fn, ok := s.loc.FindFunction(ea); ok {
		out.Function = &FunctionInfo{
			Address: hex(fn.Address()),
			Name:    sanitizeForJSON(fn.Symbol().RawName()),
			Offset:  ea - fn.Address(),
		}
	}
	sym, ok := s.loc.Find(ea)
	if !ok {
		return out
	}
	out.RawName = sanitizeForJSON(sym.RawName())
	out.Name = sanitizeForJSON(sym.Name())
	out.IsFunction = sym.IsFunction()
	out.IsImport = sym.IsImport()
	out.IsLabel = sym.IsLabel()
	out.IsReadOnly = sym.IsReadOnly()
	if size, err := sym.FunctionSize(); err == nil {
		out.FunctionSize = size
	}
	return out
}

func printInfo(cmd *cobra.Command, out InfoOutput) {
	w := cmd.OutOrStdout()
	field(w, "address", paint(addrStyle, out.Address))
	if out.Name == "" {
		field(w, "name", paint(dimStyle, "(none)"))
	} else {
		field(w, "name", paintName(out.Name))
		if out.RawName != out.Name {
			field(w, "raw", out.RawName)
		}
		field(w, "kind", flags("function", out.IsFunction, "import", out.IsImport, "label", out.IsLabel, "readonly", out.IsReadOnly))
	}
	if out.FunctionSize != 0 {
		field(w, "size", fmt.Sprintf("%#x", out.FunctionSize))
	}
	if out.Segment != "" {
		field(w, "segment", out.Segment)
	}
	if out.Function != nil {
		field(w, "function", fmt.Sprintf("%s+%#x", paintName(out.Function.Name), out.Function.Offset))
	}
}
