package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStackVarCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "stackvar <binary> <function> <offset>",
		Short: "Name the stack variable at a frame offset",
		Long: `Looks up the frame member of a function at a frame-base relative offset.
The offset is signed and accepts a 0x prefix. With --width 4, offsets that
agree in their low 32 bits also match.`,
		Example: `
symres stackvar ./a.out main -- -0x14
  `,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.ParseInt(args[2], 0, 64)
			if err != nil {
				return fmt.Errorf("bad offset %q: %w", args[2], err)
			}

			s, err := openSession(cmd, args[0], false)
			if err != nil {
				return err
			}
			defer s.Close()

			fn, err := s.function(args[1])
			if err != nil {
				return err
			}
			width := s.width()
			if cmd.Flags().Changed("width") {
				width, _ = cmd.Flags().GetUint32("width")
			}

			name, ok := fn.FindStackVar(offset, width)
			if !ok {
				return fmt.Errorf("no stack variable at offset %d in %s", offset, fn.Symbol().RawName())
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	c.Flags().Uint32P("width", "w", 8, "Pointer width in bytes (default from the binary)")
	return c
}
