// Package log installs the process-wide slog handler and recovers panics in
// the command entry point.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"

	"symres/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	closer      io.Closer
)

// Setup routes slog through the charmbracelet logger from internal/logging.
// debug forces the debug level regardless of SYMRES_LOG_LEVEL. Only the
// first call has an effect.
func Setup(debug bool) *charmlog.Logger {
	var lg *charmlog.Logger
	initOnce.Do(func() {
		lc := logging.NewLogger()
		if debug || logging.IsDebug() {
			lc.SetLevel(charmlog.DebugLevel)
			lc.SetReportCaller(true)
		}
		closer = lc
		slog.SetDefault(slog.New(lc.Logger))
		initialized.Store(true)
		lg = lc.Logger
	})
	if lg == nil {
		return Default()
	}
	return lg
}

// Default returns the logger installed by Setup, or a discard logger.
func Default() *charmlog.Logger {
	if h, ok := slog.Default().Handler().(*charmlog.Logger); ok && Initialized() {
		return h
	}
	return charmlog.New(io.Discard)
}

// Close releases the log file, if logging goes to one.
func Close() error {
	if closer == nil {
		return nil
	}
	return closer.Close()
}

func Initialized() bool {
	return initialized.Load()
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		} else {
			fmt.Fprintf(os.Stderr, "panic in %s: %v\n%s", name, r, debug.Stack())
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
