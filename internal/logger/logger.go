// Package logger provides leveled logging for lookalike.
//
// Messages go through a process-wide log/slog logger. The level and
// format come from the [log] config section; the --verbose flag lowers
// the level to debug so the rebuild and search pipeline can be followed.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the log record encoding.
type Format string

// Available formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures the logger.
type Options struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string

	// Format is text or json.
	Format Format

	// Output receives log records. Nil means os.Stderr.
	Output io.Writer
}

var (
	mu      sync.RWMutex
	verbose bool
	level             = new(slog.LevelVar)
	format            = FormatText
	output  io.Writer = os.Stderr
	base              = newLogger()
)

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configure replaces the level, format and output.
// Verbose mode, if enabled, still forces the debug level.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if opts.Output != nil {
		output = opts.Output
	}
	format = FormatText
	if opts.Format == FormatJSON {
		format = FormatJSON
	}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(ParseLevel(opts.Level))
	}
	base = newLogger()
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else if level.Level() == slog.LevelDebug {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = newLogger()
}

// L returns the current structured logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a logger that adds the given key/value pairs to every record.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Debug logs a formatted message at debug level.
func Debug(msg string, args ...any) {
	logf(slog.LevelDebug, msg, args...)
}

// Info logs a formatted message at info level.
func Info(msg string, args ...any) {
	logf(slog.LevelInfo, msg, args...)
}

// Warn logs a formatted message at warn level.
func Warn(msg string, args ...any) {
	logf(slog.LevelWarn, msg, args...)
}

// Error logs a formatted message at error level.
func Error(msg string, args ...any) {
	logf(slog.LevelError, msg, args...)
}

// Section marks the start of a pipeline stage in debug output.
func Section(name string) {
	logf(slog.LevelDebug, "=== %s ===", name)
}

func logf(lvl slog.Level, msg string, args ...any) {
	l := L()
	if !l.Enabled(context.Background(), lvl) {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.Log(context.Background(), lvl, msg)
}
