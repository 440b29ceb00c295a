package cmd

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"symres/internal/symcache"
)

func newSymbolsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "symbols <binary>",
		Short: "List every named address",
		Example: `
symres symbols ./a.out
symres symbols --functions --filter Foo:: ./libfoo.so
  `,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, args[0], false)
			if err != nil {
				return err
			}
			defer s.Close()

			cache := s.cache
			onlyFuncs, _ := cmd.Flags().GetBool("functions")
			onlyImports, _ := cmd.Flags().GetBool("imports")
			filter, _ := cmd.Flags().GetString("filter")

			entries := lo.FilterMap(s.db.Names(), func(ea uint64, _ int) (symcache.Entry, bool) {
				e, ok := cache.Resolve(ea)
				if !ok {
					return e, false
				}
				if onlyFuncs && !e.IsFunction || onlyImports && !e.IsImport {
					return e, false
				}
				if filter != "" && !strings.Contains(e.Name, filter) && !strings.Contains(e.RawName, filter) {
					return e, false
				}
				e.Name = sanitizeForJSON(e.Name)
				e.RawName = sanitizeForJSON(e.RawName)
				return e, true
			})
			s.log.Debug("listed symbols", "count", len(entries), "cached", cache.Len())

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			w := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(w, "%s  %-20s %s\n",
					paint(addrStyle, fmt.Sprintf("%016x", e.Address)),
					flags("F", e.IsFunction, "I", e.IsImport, "L", e.IsLabel, "R", e.IsReadOnly),
					paintName(e.Name))
			}
			return nil
		},
	}
	c.Flags().BoolP("json", "j", false, "Output as JSON")
	c.Flags().BoolP("functions", "f", false, "Only function entries")
	c.Flags().BoolP("imports", "i", false, "Only imports")
	c.Flags().String("filter", "", "Only names containing this text")
	return c
}
