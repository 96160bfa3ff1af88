// Package logger holds the CLI's package-level structured logger,
// grounded on the teacher's cmd/hiveexplorer/logger package: discard by
// default, rebound once at startup.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// L is the global logger. It discards everything until Init rebinds it,
// so library code that logs through it during tests or before flag
// parsing never writes to stderr unexpectedly.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	Enabled bool       // if false, L keeps discarding
	Level   slog.Level // minimum level once enabled; default Info
}

// Init rebinds L to a JSON handler over stderr when opts.Enabled, the way
// the driver turns on the core's SCANNER_SET_DEBUG_* tracing. Call once
// from main before constructing any config/scanner/feature types.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	level := opts.Level
	L = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Debug logs at debug level through L.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at info level through L.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at warn level through L.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at error level through L.
func Error(msg string, args ...any) { L.Error(msg, args...) }
