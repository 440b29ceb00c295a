package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"symres/internal/symres/log"
	"symres/internal/ui/colorize"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "symres",
		Short: "Resolve addresses in a binary to symbols",
		Long: `Symres resolves addresses in an ELF binary to symbol identities, classifies
them (function entry, import, jump label, read-only data) and keeps
analyst-authored register variable names and type declarations in a
store next to the binary.`,
		Example: `
# Describe an address
symres info ./a.out 0x401136

# Name a register variable and read it back
symres regvar set ./a.out main v1 eax
symres regvar get ./a.out main v1
  `,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cwd, _ := cmd.Flags().GetString("cwd"); cwd != "" {
				if err := os.Chdir(cwd); err != nil {
					return fmt.Errorf("change directory: %w", err)
				}
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log.Setup(cfg.Debug)
			if cfg.NoColor || !term.IsTerminal(os.Stdout.Fd()) {
				os.Setenv(colorize.EnvNoColor, "1")
			}
			return nil
		},
	}

	root.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	root.PersistentFlags().BoolP("debug", "d", false, "Debug")
	root.PersistentFlags().StringP("store", "s", "", "Metadata store path (default <binary>.symdb)")
	root.PersistentFlags().String("dialect", "", "Demangling dialect: full, simplified, templates or none")
	root.PersistentFlags().Bool("no-color", false, "Disable highlighting")

	root.AddCommand(
		newInfoCmd(),
		newSymbolsCmd(),
		newStackVarCmd(),
		newRegVarCmd(),
		newTypeCmd(),
		newDisasmCmd(),
		newSchemaCmd(),
	)
	return root
}

func Execute() {
	defer log.Close()
	root := newRootCmd()

	// fang renders help and errors for humans; piped output gets plain cobra.
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := root.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
