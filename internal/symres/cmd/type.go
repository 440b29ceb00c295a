package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"symres/internal/symbol"
	"symres/internal/typedecl"
	"symres/internal/ui/colorize"
)

func newTypeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "type",
		Short: "Read or write variable type declarations",
	}

	get := &cobra.Command{
		Use:   "get <binary> <function> <name>",
		Short: "Print the stored type declaration",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer s.Close()

			fn, err := s.function(args[1])
			if err != nil {
				return err
			}
			t, ok, err := fn.FindSymbolType(args[2])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no type for %q in %s", args[2], fn.Symbol().RawName())
			}
			fmt.Fprintln(cmd.OutOrStdout(), colorize.Declaration(t.CanonicalName()))
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <binary> <function> <name> <declaration>",
		Short: "Store a type declaration",
		Example: `
symres type set ./a.out main buf "unsigned char [64]"
symres type set --space register ./a.out main node "struct node *"
  `,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			decl := strings.Join(args[3:], " ")
			t, err := typedecl.Parse(decl)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer s.Close()

			fn, err := s.function(args[1])
			if err != nil {
				return err
			}
			var loc symbol.Location
			loc.Space, _ = cmd.Flags().GetString("space")
			loc.Offset, _ = cmd.Flags().GetInt64("offset")
			loc.Size, _ = cmd.Flags().GetInt("size")
			if err := fn.SaveSymbolType(args[2], t, loc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), colorize.Declaration(t.CanonicalName()))
			return nil
		},
	}
	set.Flags().String("space", "stack", "Storage space of the variable")
	set.Flags().Int64("offset", 0, "Offset within the storage space")
	set.Flags().Int("size", 0, "Size in bytes")

	c.AddCommand(get, set)
	return c
}
