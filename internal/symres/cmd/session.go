package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"symres/internal/database"
	"symres/internal/demangler"
	"symres/internal/disasm"
	"symres/internal/elfx"
	"symres/internal/nodestore"
	"symres/internal/symbol"
	"symres/internal/symcache"
	"symres/internal/symres/log"
	"symres/internal/typedecl"
)

// session is one loaded binary with its database, locator and, when
// requested, its metadata store.
type session struct {
	cfg   Config
	path  string
	image *elfx.Image
	db    *database.DB
	loc   *symbol.Locator
	store *nodestore.Bolt
	cache *symcache.Cache
	arch  disasm.Arch
	log   *charmlog.Logger
}

func openSession(cmd *cobra.Command, binary string, withStore bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(binary)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	im, err := elfx.Open(abs)
	if err != nil {
		return nil, err
	}

	lg := log.Default()
	db, stats := database.FromImage(im, lg)
	lg.Debug("database ready", "binary", abs, "functions", stats.Functions, "names", stats.Names)

	s := &session{cfg: cfg, path: abs, image: im, db: db, arch: disasm.ArchOf(im.Machine), log: lg}
	opts := []symbol.Option{
		symbol.WithDemangler(demangler.Demangler{}),
		symbol.WithDialect(symbol.Dialect(cfg.Dialect)),
		symbol.WithTypeParser(typedecl.Parser{}),
		symbol.WithLogger(lg),
	}
	if withStore {
		st, err := nodestore.OpenBolt(cfg.storePath(abs))
		if err != nil {
			im.Close()
			return nil, err
		}
		s.store = st
		opts = append(opts, symbol.WithStore(st))
	}
	s.loc = symbol.NewLocator(db, opts...)
	s.cache, err = symcache.New(s.loc, db, cfg.CacheSize)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() error {
	var errs []error
	if s.cache != nil {
		s.cache.Close()
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	errs = append(errs, s.image.Close())
	return errors.Join(errs...)
}

// resolve turns an address or a symbol name into an address. A 0x prefix
// forces an address; otherwise names are tried before bare hexadecimal.
func (s *session) resolve(arg string) (uint64, error) {
	if hex, ok := strings.CutPrefix(strings.ToLower(arg), "0x"); ok {
		ea, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("bad address %q: %w", arg, err)
		}
		return ea, nil
	}
	names := s.db.Names()
	for _, ea := range names {
		if raw, ok := s.db.NameAt(ea); ok && raw == arg {
			return ea, nil
		}
	}
	for _, ea := range names {
		if e, ok := s.cache.Resolve(ea); ok && e.Name == arg {
			return ea, nil
		}
	}
	for _, fn := range s.db.Functions() {
		if f, ok := s.loc.FindFunction(fn.Start); ok && f.Symbol().RawName() == arg {
			return fn.Start, nil
		}
	}
	if ea, err := strconv.ParseUint(arg, 16, 64); err == nil {
		return ea, nil
	}
	return 0, fmt.Errorf("no symbol or address %q", arg)
}

// function resolves arg to the function containing it.
func (s *session) function(arg string) (*symbol.FunctionSymbolInfo, error) {
	ea, err := s.resolve(arg)
	if err != nil {
		return nil, err
	}
	fn, ok := s.loc.FindFunction(ea)
	if !ok {
		return nil, fmt.Errorf("%#x is not inside a function", ea)
	}
	return fn, nil
}

// width is the pointer width of the loaded binary in bytes.
func (s *session) width() uint32 {
	if s.arch == disasm.Arch386 {
		return 4
	}
	return 8
}
