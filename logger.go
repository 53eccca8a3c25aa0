package gpuframe

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the package logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for gpuframe and its internal packages.
// By default gpuframe produces no log output. Pass nil to restore the
// silent default.
//
// Contexts pick the logger up when they are created; use WithLogger to give
// one Context its own.
//
// Log levels used by gpuframe:
//   - [slog.LevelDebug]: per-frame events (list acquire and submit, fence
//     waits, upload ring wraps, descriptor reclaim, present transitions)
//   - [slog.LevelInfo]: adapter choice, device creation, swapchain creation
//   - [slog.LevelWarn]: recoverable presentation failures
//   - [slog.LevelError]: fatal conditions, logged just before the abort
//
// Example:
//
//	gpuframe.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
