// Package upload implements the staging ring that moves CPU-authored data
// into device-local resources.
//
// The ring alternates between two host-visible buffers. Allocations in the
// active buffer advance a cursor; Swap at the end of each frame makes the
// other buffer active and rewinds its cursor. The buffer that was active
// during frame N is not written again until frame N+2, by which time the
// frame driver has waited for frame N to complete.
package upload

import (
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/fatal"
)

// DefaultSize is the default capacity of each ring buffer.
const DefaultSize = 4 << 20

// Allocation is a staging range. Bytes aliases the persistent mapping of
// Buffer at Offset.
type Allocation struct {
	Buffer gpucore.Resource
	Offset uint64
	Bytes  []byte
}

// RetireFunc takes ownership of a buffer replaced by growth. The buffer may
// still be referenced by recorded commands and must only be released once
// they have executed.
type RetireFunc func(gpucore.Resource)

// Stats counts ring activity.
type Stats struct {
	Allocations int
	Bytes       uint64
	Wraps       int
	Grows       int
	Capacity    [2]uint64
}

type block struct {
	res     gpucore.Resource
	mem     []byte
	cursor  uint64
	flushed uint64
	live    bool
}

// Ring is a pair of alternating upload buffers.
type Ring struct {
	dev    gpucore.Device
	blocks [2]block
	active int
	retire RetireFunc
	stats  Stats
	log    *slog.Logger
}

// New creates both buffers with size bytes each. Creation failure is fatal.
func New(dev gpucore.Device, size uint64, retire RetireFunc, log *slog.Logger) *Ring {
	if size == 0 {
		size = DefaultSize
	}
	r := &Ring{dev: dev, retire: retire, log: fatal.Logger(log)}
	for i := range r.blocks {
		r.blocks[i] = r.create(i, size)
	}
	return r
}

func (r *Ring) create(i int, size uint64) block {
	res, err := r.dev.CreateCommittedResource(&gpucore.ResourceDesc{
		Label:        fmt.Sprintf("upload%d", i),
		Dimension:    gpucore.DimensionBuffer,
		Heap:         gpucore.MemoryUpload,
		Size:         size,
		InitialState: gpucore.StateGenericRead,
	})
	if err != nil {
		fatal.Abort(r.log, "upload buffer", err)
	}
	mem, err := res.Map()
	if err != nil {
		fatal.Abort(r.log, "map upload buffer", err)
	}
	r.stats.Capacity[i] = size
	return block{res: res, mem: mem}
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

func nextPow2(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	return 1 << (64 - bits.LeadingZeros64(v-1))
}

// Alloc returns size bytes aligned to align in the active buffer.
//
// A request that does not fit behind the cursor restarts at offset 0 when
// the buffer holds nothing live; otherwise the buffer is replaced by a
// larger one so live ranges are never overwritten. A request larger than
// the whole buffer always grows it.
func (r *Ring) Alloc(size, align uint64) Allocation {
	b := &r.blocks[r.active]
	capacity := uint64(len(b.mem))

	off := alignUp(b.cursor, align)
	if off+size > capacity {
		if size <= capacity && !b.live {
			off = 0
			b.flushed = 0
			r.stats.Wraps++
			r.log.Debug("upload: wrap", "buffer", r.active, "size", size)
		} else {
			r.grow(max(size, 2*capacity))
			b = &r.blocks[r.active]
			off = 0
		}
	}

	b.cursor = off + size
	b.live = true
	r.stats.Allocations++
	r.stats.Bytes += size
	return Allocation{Buffer: b.res, Offset: off, Bytes: b.mem[off : off+size : off+size]}
}

// grow replaces the active buffer with one of at least size bytes. The old
// buffer is flushed and handed to the retire hook.
func (r *Ring) grow(size uint64) {
	b := &r.blocks[r.active]
	r.flushBlock(b)
	old := b.res
	size = nextPow2(size)
	r.log.Debug("upload: grow", "buffer", r.active, "from", len(b.mem), "size", size)
	r.blocks[r.active] = r.create(r.active, size)
	r.stats.Grows++
	if r.retire != nil {
		r.retire(old)
	} else {
		old.Release()
	}
}

func (r *Ring) flushBlock(b *block) {
	if b.cursor > b.flushed {
		b.res.Flush(b.flushed, b.cursor-b.flushed)
		b.flushed = b.cursor
	}
}

// Flush publishes everything written to the active buffer since the last
// flush. Call it before submitting work that reads staged data.
func (r *Ring) Flush() {
	r.flushBlock(&r.blocks[r.active])
}

// Swap flushes the active buffer and makes the other one active with its
// cursor rewound.
func (r *Ring) Swap() {
	r.flushBlock(&r.blocks[r.active])
	r.active ^= 1
	b := &r.blocks[r.active]
	b.cursor = 0
	b.flushed = 0
	b.live = false
}

// Retire marks the active buffer's contents consumed. Only call it after
// the work reading them has completed.
func (r *Ring) Retire() {
	b := &r.blocks[r.active]
	r.flushBlock(b)
	b.live = false
}

// Active returns the index of the active buffer.
func (r *Ring) Active() int { return r.active }

// Cursor returns the write cursor of the active buffer.
func (r *Ring) Cursor() uint64 { return r.blocks[r.active].cursor }

// Capacity returns the size of the active buffer.
func (r *Ring) Capacity() uint64 { return uint64(len(r.blocks[r.active].mem)) }

// Stats returns a snapshot of the counters.
func (r *Ring) Stats() Stats { return r.stats }

// Release destroys both buffers.
func (r *Ring) Release() {
	for i := range r.blocks {
		if r.blocks[i].res != nil {
			r.blocks[i].res.Release()
			r.blocks[i] = block{}
		}
	}
}
