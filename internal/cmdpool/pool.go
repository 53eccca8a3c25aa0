// Package cmdpool recycles command lists and gates their reuse on fence
// completion.
//
// A list moves Free -> Recording -> InFlight -> Free. Acquire hands out a
// Free list, Submit makes it InFlight, and WaitForCompletion returns every
// InFlight list to Free once the fence shows the device is done with it.
package cmdpool

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/fatal"
	"github.com/gogpu/gpuframe/internal/stack"
)

// DefaultSize is enough for one frame recording while one executes.
const DefaultSize = 2

// State is the lifecycle state of a pooled list.
type State uint8

// List states.
const (
	Free State = iota
	Recording
	InFlight
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Recording:
		return "recording"
	case InFlight:
		return "in-flight"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// List is a command list with the allocator it records into.
type List struct {
	Allocator gpucore.CommandAllocator
	Commands  gpucore.CommandList

	id    int
	state State
	fence uint64
}

// ID identifies the list within its pool.
func (l *List) ID() int { return l.id }

// State returns the lifecycle state.
func (l *List) State() State { return l.state }

// FenceValue is the fence value that retires the list once submitted.
func (l *List) FenceValue() uint64 { return l.fence }

// Stats counts pool activity.
type Stats struct {
	Created   int
	Acquires  int
	Submits   int
	Recycled  int
	IdleWaits int
	Stalls    int
}

// Pool hands out command lists.
type Pool struct {
	dev       gpucore.Device
	queue     gpucore.Queue
	sync      *FrameSync
	free      *stack.Stack[*List]
	submitted *stack.Stack[*List]
	all       []*List
	size      int
	stats     Stats
	log       *slog.Logger
}

// New returns a pool of at most size lists. Lists are created on demand.
func New(dev gpucore.Device, queue gpucore.Queue, sync *FrameSync, size int, log *slog.Logger) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{
		dev:       dev,
		queue:     queue,
		sync:      sync,
		free:      stack.New[*List](size),
		submitted: stack.New[*List](size),
		size:      size,
		log:       fatal.Logger(log),
	}
}

// Acquire returns a list ready to record. When every list is in flight it
// waits for the device first; running out of lists after that is fatal.
func (p *Pool) Acquire() *List {
	l, ok := p.free.Pop()
	if !ok && len(p.all) < p.size {
		l, ok = p.create(), true
	}
	if !ok {
		p.stats.Stalls++
		p.WaitForCompletion()
		l, ok = p.free.Pop()
	}
	if !ok {
		fatal.Abortf(p.log, "acquire command list",
			fmt.Sprintf("all %d command lists are recording", p.size))
	}
	p.transition(l, Free, Recording)
	p.stats.Acquires++
	p.log.Debug("cmdpool: acquire", "list", l.id)
	return l
}

func (p *Pool) create() *List {
	alloc, err := p.dev.CreateCommandAllocator()
	if err != nil {
		fatal.Abort(p.log, "create command allocator", err)
	}
	cl, err := p.dev.CreateCommandList(alloc)
	if err != nil {
		fatal.Abort(p.log, "create command list", err)
	}
	l := &List{Allocator: alloc, Commands: cl, id: len(p.all)}
	p.all = append(p.all, l)
	p.stats.Created++
	return l
}

func (p *Pool) transition(l *List, from, to State) {
	if l.state != from {
		fatal.Abortf(p.log, "command list transition",
			fmt.Sprintf("list %d is %s, want %s before %s", l.id, l.state, from, to))
	}
	l.state = to
}

// Submit closes l and submits it. A failing submit means the device is
// gone and is fatal.
func (p *Pool) Submit(l *List) {
	p.transition(l, Recording, InFlight)
	if err := l.Commands.Close(); err != nil {
		fatal.Abort(p.log, "close command list", err)
	}
	if err := p.queue.Submit(l.Commands); err != nil {
		fatal.Abort(p.log, "submit command list", err)
	}
	l.fence = p.sync.Next()
	p.submitted.Push(l)
	p.sync.MarkIssued()
	p.stats.Submits++
	p.log.Debug("cmdpool: submit", "list", l.id, "fence", l.fence)
}

// WaitForCompletion blocks until all submitted work is complete and
// recycles the submitted lists. It returns false without waiting when
// nothing was submitted since the last call.
func (p *Pool) WaitForCompletion() bool {
	if !p.sync.Issued() {
		p.stats.IdleWaits++
		return false
	}
	reached := p.sync.SignalAndWait()
	for {
		l, ok := p.submitted.Pop()
		if !ok {
			break
		}
		if l.fence > reached {
			fatal.Abortf(p.log, "recycle command list",
				fmt.Sprintf("list %d retires at %d, fence reached %d", l.id, l.fence, reached))
		}
		if err := l.Allocator.Reset(); err != nil {
			fatal.Abort(p.log, "reset command allocator", err)
		}
		if err := l.Commands.Reset(l.Allocator); err != nil {
			fatal.Abort(p.log, "reset command list", err)
		}
		p.transition(l, InFlight, Free)
		p.free.Push(l)
		p.stats.Recycled++
	}
	return true
}

// Sync returns the frame sync the pool waits on.
func (p *Pool) Sync() *FrameSync { return p.sync }

// Lists returns every list created so far.
func (p *Pool) Lists() []*List { return p.all }

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats { return p.stats }

// Release waits for outstanding work and destroys every list.
func (p *Pool) Release() {
	p.WaitForCompletion()
	for _, l := range p.all {
		l.Commands.Release()
		l.Allocator.Release()
	}
	p.all = nil
	p.free.Clear()
	p.submitted.Clear()
}
