package gpuframe

import (
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/cmdpool"
	"github.com/gogpu/gpuframe/internal/descheap"
	"github.com/gogpu/gpuframe/internal/present"
	"github.com/gogpu/gpuframe/internal/resource"
	"github.com/gogpu/gpuframe/internal/upload"
)

type counters struct {
	frames     uint64
	recoveries int
	deviceLost int
	resizes    int
	immediates int
}

// HeapStats describes the slot partition of one descriptor heap.
type HeapStats struct {
	Kind     gpucore.HeapKind
	Capacity int
	Free     int
	Occupied int
	Pending  int
}

// Stats is a snapshot of Context counters.
type Stats struct {
	// Frames is the number of frames ended.
	Frames uint64

	// Presented is the number of successful presents.
	Presented int

	// Dropped is the number of ended frames that were not presented.
	// Always zero for a headless Context.
	Dropped uint64

	// Recoveries counts entries into the presentation Error state.
	Recoveries int

	// DeviceLost counts presentation failures caused by device loss.
	DeviceLost int

	// Resizes counts completed resizes.
	Resizes int

	// Immediates counts Immediate submissions.
	Immediates int

	// FenceWaits counts waits that actually blocked on the fence.
	FenceWaits int

	Heaps     [4]HeapStats
	Resources resource.Stats
	Commands  cmdpool.Stats
	Upload    upload.Stats
	Present   present.Stats
}

// String returns a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("Frames[%d ended, %d presented, %d dropped, %d recoveries] %s",
		s.Frames, s.Presented, s.Dropped, s.Recoveries, s.Resources)
}

// Stats returns a snapshot of the counters of the Context and its parts.
func (c *Context) Stats() Stats {
	s := Stats{
		Frames:     c.counters.frames,
		Recoveries: c.counters.recoveries,
		DeviceLost: c.counters.deviceLost,
		Resizes:    c.counters.resizes,
		Immediates: c.counters.immediates,
		Resources:  c.resources.Stats(),
		Commands:   c.pool.Stats(),
		FenceWaits: c.sync.Waits(),
	}
	if ring := c.resources.Ring(); ring != nil {
		s.Upload = ring.Stats()
	}
	for i, h := range []*descheap.Allocator{c.rtvHeap, c.dsvHeap, c.samplerHeap, c.srvHeap} {
		free, occupied, pending := h.Counts()
		s.Heaps[i] = HeapStats{
			Kind:     h.Kind(),
			Capacity: h.Capacity(),
			Free:     free,
			Occupied: occupied,
			Pending:  pending,
		}
	}
	if c.machine != nil {
		s.Present = c.machine.Stats()
		s.Presented = s.Present.Presents
		if uint64(s.Presented) < s.Frames {
			s.Dropped = s.Frames - uint64(s.Presented)
		}
	}
	return s
}
