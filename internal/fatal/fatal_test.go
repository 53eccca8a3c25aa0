package fatal

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gpuframe/gpucore"
)

func TestAbortPanicsWithFatalError(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	cause := errors.New("boom")

	defer func() {
		r := recover()
		fe, ok := r.(*gpucore.FatalError)
		if !ok {
			t.Fatalf("recovered %T, want *gpucore.FatalError", r)
		}
		if fe.Op != "create heap" || !errors.Is(fe, cause) {
			t.Errorf("FatalError = %+v", fe)
		}
		if !strings.Contains(buf.String(), "create heap") {
			t.Errorf("log output %q does not name the operation", buf.String())
		}
	}()
	Abort(log, "create heap", cause)
	t.Fatal("Abort returned")
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Abortf(nil, "occupy", "heap exhausted")
		return nil
	}
	err := run()
	var fe *gpucore.FatalError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *gpucore.FatalError", err)
	}
	if fe.Op != "occupy" {
		t.Errorf("Op = %q, want occupy", fe.Op)
	}
}

func TestRecoverRepanicsForeignValues(t *testing.T) {
	defer func() {
		if r := recover(); r != "other" {
			t.Errorf("recovered %v, want other", r)
		}
	}()
	func() {
		var err error
		defer Recover(&err)
		panic("other")
	}()
}
