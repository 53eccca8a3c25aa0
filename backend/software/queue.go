package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
)

type pendingSignal struct {
	fence *Fence
	value uint64
	lists []*CommandList
}

// Queue executes submitted lists and signals fences.
type Queue struct {
	dev *Device

	mu         sync.Mutex
	hold       bool
	unsignaled []*CommandList
	pending    []pendingSignal
	lost       error
}

// HoldCompletion keeps signaled values pending until CompletePending is
// called, simulating a device that is still executing.
func (q *Queue) HoldCompletion(hold bool) {
	q.mu.Lock()
	q.hold = hold
	q.mu.Unlock()
}

// CompletePending completes every held signal in order and returns how
// many completed.
func (q *Queue) CompletePending() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range pending {
		q.complete(p)
	}
	return len(pending)
}

// Pending returns the number of held signals.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// LoseDevice makes every later Submit fail with gpucore.ErrDeviceLost.
func (q *Queue) LoseDevice() {
	q.mu.Lock()
	q.lost = gpucore.ErrDeviceLost
	q.mu.Unlock()
}

// Submit executes closed lists in order.
func (q *Queue) Submit(lists ...gpucore.CommandList) error {
	q.mu.Lock()
	lost := q.lost
	q.mu.Unlock()
	if lost != nil {
		return lost
	}

	for _, cl := range lists {
		l, ok := cl.(*CommandList)
		if !ok {
			return fmt.Errorf("software: submit of foreign command list %T", cl)
		}
		if l.open {
			return fmt.Errorf("software: submit of a command list that is still recording")
		}
		if l.inFlight {
			q.dev.violate("resubmission of an in-flight command list")
		}
		l.inFlight = true
		q.dev.execute(l.cmds)

		q.mu.Lock()
		q.unsignaled = append(q.unsignaled, l)
		q.mu.Unlock()
	}
	q.dev.count(func(s *Stats) { s.Submits++ })
	return nil
}

// Signal sets fence to value after everything submitted so far.
func (q *Queue) Signal(fence gpucore.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok {
		return fmt.Errorf("software: signal of foreign fence %T", fence)
	}
	q.mu.Lock()
	p := pendingSignal{fence: f, value: value, lists: q.unsignaled}
	q.unsignaled = nil
	hold := q.hold
	if hold {
		q.pending = append(q.pending, p)
	}
	q.mu.Unlock()

	q.dev.count(func(s *Stats) { s.Signals++ })
	if !hold {
		q.complete(p)
	}
	return nil
}

func (q *Queue) complete(p pendingSignal) {
	for _, l := range p.lists {
		l.inFlight = false
	}
	p.fence.advance(p.value)
}

// Fence is a simulated fence. Wait blocks on a condition variable until
// the queue completes the awaited value.
type Fence struct {
	mu       sync.Mutex
	cond     *sync.Cond
	value    uint64
	released bool
}

func newFence(initial uint64) *Fence {
	f := &Fence{value: initial}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Completed returns the last completed value.
func (f *Fence) Completed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Wait blocks until the fence reaches value.
func (f *Fence) Wait(value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.value < value {
		f.cond.Wait()
	}
	return nil
}

// Release marks the fence released.
func (f *Fence) Release() {
	f.mu.Lock()
	f.released = true
	f.mu.Unlock()
}

func (f *Fence) advance(value uint64) {
	f.mu.Lock()
	if value > f.value {
		f.value = value
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}
