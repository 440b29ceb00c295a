// Package logging builds the charmbracelet logger used by the command line
// tools. Level, prefix and file output come from SYMRES_* environment variables.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	envLevel  = "SYMRES_LOG_LEVEL"
	envPrefix = "SYMRES_LOG_PREFIX"
	envToFile = "SYMRES_LOG_TO_FILE"
)

// LoggerCloser wraps a logger and closes its writer, if any.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// ParseLevel maps debug, warn and error to their levels. Anything else is info.
func ParseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           ParseLevel(os.Getenv(envLevel)),
	})

	prefix := os.Getenv(envPrefix)
	if prefix == "" {
		prefix = "symres "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr {
		closer = c
	}
	return &LoggerCloser{Logger: lg.WithPrefix(prefix), closer: closer}
}

// NewLogger creates a logger from the environment:
//
//	SYMRES_LOG_LEVEL    debug, info, warn, error (default: info)
//	SYMRES_LOG_PREFIX   message prefix (default: "symres ")
//	SYMRES_LOG_TO_FILE  "1" logs to a timestamped file instead of stderr
func NewLogger() *LoggerCloser {
	output := io.Writer(os.Stderr)
	if os.Getenv(envToFile) == "1" {
		name := fmt.Sprintf("symres-%s-debug.log", time.Now().Format("20060102-150405"))
		// stderr stays the fallback when the file cannot be created
		if f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
			output = f
		}
	}
	return NewLoggerWithWriter(output)
}

// IsDebug reports whether debug logging was requested.
func IsDebug() bool {
	return os.Getenv(envLevel) == "debug"
}
