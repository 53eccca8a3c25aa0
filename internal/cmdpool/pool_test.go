package cmdpool

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gpuframe/backend/software"
	"github.com/gogpu/gpuframe/gpucore"
)

func newPool(t *testing.T, size int) (*Pool, *software.Device) {
	t.Helper()
	dev := software.NewDevice(gpucore.Caps{})
	sync := NewFrameSync(dev, dev.Queue(), nil)
	return New(dev, dev.Queue(), sync, size, nil), dev
}

func TestAcquireCreatesLazily(t *testing.T) {
	p, _ := newPool(t, 2)
	if got := len(p.Lists()); got != 0 {
		t.Fatalf("pool created %d lists up front, want 0", got)
	}
	a := p.Acquire()
	b := p.Acquire()
	if a == b {
		t.Fatal("Acquire returned the same list twice without a submit")
	}
	if a.State() != Recording || b.State() != Recording {
		t.Errorf("states = %s, %s; want recording", a.State(), b.State())
	}
	if p.Stats().Created != 2 {
		t.Errorf("Created = %d, want 2", p.Stats().Created)
	}
}

func TestListNotReusedBeforeCompletion(t *testing.T) {
	p, dev := newPool(t, 2)

	// Track which lists are held: a list may come back from Acquire only
	// after it was submitted and a wait completed.
	held := map[*List]bool{}
	pendingWait := map[*List]bool{}
	for frame := 0; frame < 20; frame++ {
		l := p.Acquire()
		if held[l] || pendingWait[l] {
			t.Fatalf("frame %d: list %d reused while %s", frame, l.ID(), l.State())
		}
		held[l] = true

		p.Submit(l)
		delete(held, l)
		pendingWait[l] = true

		if p.WaitForCompletion() {
			clear(pendingWait)
		}
	}
	if v := dev.Violations(); len(v) != 0 {
		t.Errorf("device violations: %v", v)
	}
}

func TestWaitForCompletionIdleFastPath(t *testing.T) {
	p, dev := newPool(t, 2)
	if p.WaitForCompletion() {
		t.Error("WaitForCompletion waited with nothing submitted")
	}
	if dev.Stats().Signals != 0 {
		t.Errorf("idle wait signaled the fence %d times", dev.Stats().Signals)
	}

	p.Submit(p.Acquire())
	if !p.WaitForCompletion() {
		t.Error("WaitForCompletion skipped outstanding work")
	}
	if p.WaitForCompletion() {
		t.Error("second WaitForCompletion waited again")
	}
	if p.Stats().IdleWaits != 2 {
		t.Errorf("IdleWaits = %d, want 2", p.Stats().IdleWaits)
	}
}

func TestWaitReachesSubmittedFence(t *testing.T) {
	p, _ := newPool(t, 2)
	for i := 0; i < 5; i++ {
		l := p.Acquire()
		p.Submit(l)
		want := l.FenceValue()
		p.WaitForCompletion()
		if got := p.Sync().Completed(); got < want {
			t.Fatalf("iteration %d: completed %d < submitted %d", i, got, want)
		}
		if got := p.Sync().Fence().Completed(); got < want {
			t.Fatalf("iteration %d: device fence %d < submitted %d", i, got, want)
		}
	}
}

func TestWaitBlocksUntilDeviceCompletes(t *testing.T) {
	p, dev := newPool(t, 1)
	q := dev.Queue()
	q.HoldCompletion(true)

	l := p.Acquire()
	p.Submit(l)

	done := make(chan bool)
	go func() { done <- p.WaitForCompletion() }()

	select {
	case <-done:
		t.Fatal("WaitForCompletion returned before the device completed")
	case <-time.After(50 * time.Millisecond):
	}

	// Wait until the signal reached the queue before completing it.
	deadline := time.Now().Add(2 * time.Second)
	for q.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("fence was never signaled")
		}
		time.Sleep(time.Millisecond)
	}
	q.CompletePending()

	select {
	case waited := <-done:
		if !waited {
			t.Error("WaitForCompletion reported an idle wait")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForCompletion did not return after completion")
	}

	if got := p.Acquire(); got != l {
		t.Errorf("Acquire returned list %d, want recycled list %d", got.ID(), l.ID())
	}
	if p.Sync().Waits() != 1 {
		t.Errorf("Waits = %d, want 1", p.Sync().Waits())
	}
}

func TestAcquireStallsWhenAllInFlight(t *testing.T) {
	p, _ := newPool(t, 1)
	l := p.Acquire()
	p.Submit(l)

	again := p.Acquire()
	if again != l {
		t.Fatal("Acquire did not recycle the only list")
	}
	if p.Stats().Stalls != 1 {
		t.Errorf("Stalls = %d, want 1", p.Stats().Stalls)
	}
}

func TestAcquireExhaustedIsFatal(t *testing.T) {
	p, _ := newPool(t, 1)
	p.Acquire()

	defer func() {
		err, _ := recover().(error)
		var fe *gpucore.FatalError
		if !errors.As(err, &fe) {
			t.Fatalf("recovered %v, want *gpucore.FatalError", err)
		}
	}()
	p.Acquire()
}

func TestSubmitOfFreeListIsFatal(t *testing.T) {
	p, _ := newPool(t, 1)
	l := p.Acquire()
	p.Submit(l)

	defer func() {
		if _, ok := recover().(*gpucore.FatalError); !ok {
			t.Fatal("double submit did not abort")
		}
	}()
	p.Submit(l)
}

func TestCreationFailureIsFatal(t *testing.T) {
	tests := []struct {
		name string
		obj  software.Object
	}{
		{"allocator", software.ObjectAllocator},
		{"list", software.ObjectCommandList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dev := newPool(t, 2)
			dev.FailNext(tt.obj, 1)
			defer func() {
				if _, ok := recover().(*gpucore.FatalError); !ok {
					t.Fatal("creation failure did not abort")
				}
			}()
			p.Acquire()
		})
	}
}

func TestRecycledListsAreReset(t *testing.T) {
	p, dev := newPool(t, 1)
	l := p.Acquire()
	l.Commands.Draw(3, 0)
	p.Submit(l)
	p.WaitForCompletion()

	sw := l.Commands.(*software.CommandList)
	if !sw.Open() || len(sw.Recorded()) != 0 {
		t.Errorf("recycled list open=%v with %d commands", sw.Open(), len(sw.Recorded()))
	}
	if dev.Stats().AllocatorResets != 1 {
		t.Errorf("AllocatorResets = %d, want 1", dev.Stats().AllocatorResets)
	}
}
