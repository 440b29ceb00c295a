package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegVarCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "regvar",
		Short: "Read or write register variable names",
	}
	c.AddCommand(
		&cobra.Command{
			Use:   "get <binary> <function> <name>",
			Short: "Print the stored register variable",
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
				v, ok, err := fn.FindRegVar(args[2])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no register variable %q in %s", args[2], fn.Symbol().RawName())
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <binary> <function> <name> <value>",
			Short: "Store a register variable",
			Args:  cobra.ExactArgs(4),
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
				if err := fn.SaveRegVar(args[2], args[3]); err != nil {
					return err
				}
				s.log.Info("saved register variable", "function", fn.Symbol().RawName(), "name", args[2], "store", s.store.Path())
				return nil
			},
		},
	)
	return c
}
