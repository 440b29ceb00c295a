package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"symres/internal/demangler"
	"symres/internal/symbol"
	"symres/internal/ui/colorize"
)

const (
	envStore   = "SYMRES_STORE"
	envDialect = "SYMRES_DIALECT"
	envCache   = "SYMRES_CACHE_SIZE"
)

// Config is the effective configuration of one invocation. Flags win over
// environment variables.
type Config struct {
	Debug     bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	Store     string `json:"store,omitempty" jsonschema:"title=Store,description=Path of the metadata store. Defaults to the binary path with a .symdb suffix"`
	Dialect   string `json:"dialect,omitempty" jsonschema:"title=Dialect,description=Demangling dialect used for display names,enum=full,enum=simplified,enum=templates,enum=none,default=full"`
	NoColor   bool   `json:"noColor,omitempty" jsonschema:"title=No Color,description=Disable syntax highlighting"`
	CacheSize int    `json:"cacheSize,omitempty" jsonschema:"title=Cache Size,description=Entries kept by the symbol cache when listing,minimum=0"`
}

func loadConfig(cmd *cobra.Command) (Config, error) {
	var cfg Config
	flags := cmd.Flags()
	cfg.Debug, _ = flags.GetBool("debug")
	cfg.NoColor, _ = flags.GetBool("no-color")
	cfg.Store, _ = flags.GetString("store")
	cfg.Dialect, _ = flags.GetString("dialect")

	if cfg.Store == "" {
		cfg.Store = os.Getenv(envStore)
	}
	if cfg.Dialect == "" {
		cfg.Dialect = os.Getenv(envDialect)
	}
	if cfg.Dialect == "" {
		cfg.Dialect = string(symbol.DefaultDialect)
	}
	if !demangler.Valid(symbol.Dialect(cfg.Dialect)) {
		return cfg, fmt.Errorf("unknown dialect %q", cfg.Dialect)
	}
	if v := os.Getenv(envCache); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("%s: invalid size %q", envCache, v)
		}
		cfg.CacheSize = n
	}
	if os.Getenv(colorize.EnvNoColor) != "" {
		cfg.NoColor = true
	}
	return cfg, nil
}

// storePath is where metadata for binary lives.
func (c Config) storePath(binary string) string {
	if c.Store != "" {
		return c.Store
	}
	return binary + ".symdb"
}
