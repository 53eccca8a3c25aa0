package cmdpool

import (
	"log/slog"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/fatal"
)

// FrameSync pairs a fence with the counter of values signaled on it.
//
// The counter only advances inside SignalAndWait, after which the device
// has reached it, so at most one signaled value is ever outstanding.
type FrameSync struct {
	fence     gpucore.Fence
	queue     gpucore.Queue
	counter   uint64
	completed uint64
	issued    bool
	waits     int
	log       *slog.Logger
}

// NewFrameSync creates the fence. Failure is fatal.
func NewFrameSync(dev gpucore.Device, queue gpucore.Queue, log *slog.Logger) *FrameSync {
	log = fatal.Logger(log)
	f, err := dev.CreateFence(0)
	if err != nil {
		fatal.Abort(log, "create fence", err)
	}
	return &FrameSync{fence: f, queue: queue, log: log}
}

// MarkIssued records that work was submitted since the last wait.
func (s *FrameSync) MarkIssued() { s.issued = true }

// Issued reports whether work was submitted since the last wait.
func (s *FrameSync) Issued() bool { return s.issued }

// Next returns the value the next SignalAndWait will signal.
func (s *FrameSync) Next() uint64 { return s.counter + 1 }

// SignalAndWait signals the next counter value, blocks until the device
// reaches it and returns it. A failing signal or wait means the device is
// gone and is fatal.
func (s *FrameSync) SignalAndWait() uint64 {
	v := s.counter + 1
	if err := s.queue.Signal(s.fence, v); err != nil {
		fatal.Abort(s.log, "signal fence", err)
	}
	if s.fence.Completed() < v {
		s.waits++
		s.log.Debug("cmdpool: waiting for fence", "fence", v)
		if err := s.fence.Wait(v); err != nil {
			fatal.Abort(s.log, "wait fence", err)
		}
	}
	s.counter = v
	s.completed = v
	s.issued = false
	return v
}

// Counter returns the last value signaled.
func (s *FrameSync) Counter() uint64 { return s.counter }

// Completed returns the last value confirmed reached.
func (s *FrameSync) Completed() uint64 { return s.completed }

// Waits returns how many times SignalAndWait had to block.
func (s *FrameSync) Waits() int { return s.waits }

// Fence returns the underlying fence.
func (s *FrameSync) Fence() gpucore.Fence { return s.fence }

// Release destroys the fence.
func (s *FrameSync) Release() {
	if s.fence != nil {
		s.fence.Release()
		s.fence = nil
	}
}
