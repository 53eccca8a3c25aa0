// Package fatal terminates on conditions the frame layer cannot recover
// from: device object creation failure, descriptor exhaustion, command list
// creation failure.
package fatal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gogpu/gpuframe/gpucore"
)

// Abort logs op and err at error level and panics with a
// *gpucore.FatalError. It never returns.
func Abort(log *slog.Logger, op string, err error) {
	if log == nil {
		log = Nop()
	}
	log.Error("gpuframe: fatal", "op", op, "err", err)
	panic(&gpucore.FatalError{Op: op, Err: err})
}

// Abortf is Abort with a plain message in place of an error.
func Abortf(log *slog.Logger, op, msg string) {
	Abort(log, op, errors.New(msg))
}

// Recover converts a fatal panic back into an error. Other panics are
// re-raised. Use it as
//
//	defer fatal.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	fe, ok := r.(*gpucore.FatalError)
	if !ok {
		panic(r)
	}
	*errp = fe
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that discards everything.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

// Logger returns l, or a discarding logger when l is nil.
func Logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
