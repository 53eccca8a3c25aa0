// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
)

// Queue submits closed lists to the HAL queue.
type Queue struct {
	dev *Device
	hal hal.Queue

	mu        sync.Mutex
	submitted uint64
}

// HAL returns the underlying HAL queue.
func (q *Queue) HAL() hal.Queue { return q.hal }

// Submit submits closed lists in order.
func (q *Queue) Submit(lists ...gpucore.CommandList) error {
	bufs := make([]hal.CommandBuffer, 0, len(lists))
	for _, cl := range lists {
		l, ok := cl.(*CommandList)
		if !ok {
			return fmt.Errorf("wgpu: submit of foreign command list %T", cl)
		}
		if l.open || l.buf == nil {
			return fmt.Errorf("wgpu: submit of a command list that is not closed")
		}
		bufs = append(bufs, l.buf)
	}
	if len(bufs) == 0 {
		return nil
	}
	idx, err := q.hal.Submit(bufs)
	if err != nil {
		return deviceError("submit", err)
	}
	q.mu.Lock()
	q.submitted = max(q.submitted, idx)
	q.mu.Unlock()
	return nil
}

// Signal records that fence reaches value once the last submission is done.
func (q *Queue) Signal(fence gpucore.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok {
		return fmt.Errorf("wgpu: signal of foreign fence %T", fence)
	}
	q.mu.Lock()
	idx := q.submitted
	q.mu.Unlock()
	f.signal(idx, value)
	return nil
}

type fenceSignal struct {
	submission uint64
	value      uint64
}

// Fence maps fence values onto HAL submission indices.
type Fence struct {
	dev *Device

	mu        sync.Mutex
	completed uint64
	signaled  uint64
	pending   []fenceSignal
}

func (f *Fence) signal(submission, value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = max(f.signaled, value)
	if submission == 0 {
		f.completed = max(f.completed, value)
		return
	}
	f.pending = append(f.pending, fenceSignal{submission: submission, value: value})
}

// Completed polls the HAL and returns the last value reached.
func (f *Fence) Completed() uint64 {
	done := f.dev.queue.hal.PollCompleted()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retire(done)
	return f.completed
}

// retire completes every pending signal at or below submission. f.mu must
// be held.
func (f *Fence) retire(submission uint64) {
	n := 0
	for _, p := range f.pending {
		if p.submission > submission {
			break
		}
		f.completed = max(f.completed, p.value)
		n++
	}
	f.pending = f.pending[n:]
}

// Wait blocks until value is reached. The HAL has no per-submission wait,
// so an unfinished value waits for the whole device.
func (f *Fence) Wait(value uint64) error {
	if f.Completed() >= value {
		return nil
	}
	f.mu.Lock()
	signaled := f.signaled
	f.mu.Unlock()
	if signaled < value {
		return fmt.Errorf("wgpu: wait for fence value %d that was never signaled (last %d)", value, signaled)
	}
	if err := f.dev.hal.WaitIdle(); err != nil {
		return deviceError("wait idle", err)
	}
	f.mu.Lock()
	f.retire(^uint64(0))
	f.mu.Unlock()
	return nil
}

// Release drops pending signals.
func (f *Fence) Release() {
	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()
}
