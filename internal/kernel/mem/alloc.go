// Package mem implements the physical frame accounting used by memory
// objects. Frames are simulated: the allocator hands out frame numbers and
// tracks reservations in a free bitmap, it does not touch real pages.
package mem

import (
	"fmt"
	"math/bits"
	"sync"
)

// PageSize is the size of a single frame in bytes.
const PageSize = 4096

// Frame is a physical frame number.
type Frame uint64

// Address returns the physical address of the first byte of the frame.
func (f Frame) Address() uint64 { return uint64(f) * PageSize }

// PagesFor returns the number of frames needed to back size bytes.
func PagesFor(size uint64) int {
	return int((size + PageSize - 1) / PageSize)
}

// FrameAllocator tracks frame reservations in a free bitmap.
//
// Bit i of the bitmap is set when frame i is reserved. The allocator keeps a
// running free count so exhaustion checks do not scan the bitmap.
type FrameAllocator struct {
	mu     sync.Mutex
	bitmap []uint64
	total  int
	free   int
}

// NewFrameAllocator creates an allocator managing the given number of frames.
func NewFrameAllocator(frames int) *FrameAllocator {
	if frames <= 0 {
		panic(fmt.Sprintf("mem: invalid frame count %d", frames))
	}
	words := (frames + 63) / 64
	return &FrameAllocator{
		bitmap: make([]uint64, words),
		total:  frames,
		free:   frames,
	}
}

// Alloc reserves a single frame. The second return value is false when no
// frame is available.
func (a *FrameAllocator) Alloc() (Frame, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocLocked()
}

// AllocN reserves n frames, all-or-nothing. The frames are not guaranteed to
// be contiguous.
func (a *FrameAllocator) AllocN(n int) ([]Frame, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n <= 0 || n > a.free {
		return nil, false
	}

	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		f, ok := a.allocLocked()
		if !ok {
			// free count said there was room
			panic("mem: free count out of sync with bitmap")
		}
		frames = append(frames, f)
	}
	return frames, true
}

// Free releases a reserved frame. Releasing an unreserved frame indicates
// corrupted kernel bookkeeping and panics.
func (a *FrameAllocator) Free(f Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()

	word, bit := int(f/64), uint(f%64)
	if int(f) >= a.total || a.bitmap[word]&(1<<bit) == 0 {
		panic(fmt.Sprintf("mem: double free of frame %d", f))
	}
	a.bitmap[word] &^= 1 << bit
	a.free++
}

// FreeAll releases a set of reserved frames.
func (a *FrameAllocator) FreeAll(frames []Frame) {
	for _, f := range frames {
		a.Free(f)
	}
}

// Total returns the number of managed frames.
func (a *FrameAllocator) Total() int { return a.total }

// FreeCount returns the number of unreserved frames.
func (a *FrameAllocator) FreeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.free
}

func (a *FrameAllocator) allocLocked() (Frame, bool) {
	if a.free == 0 {
		return 0, false
	}
	for word, v := range a.bitmap {
		if v == ^uint64(0) {
			continue
		}
		bit := uint(bits.TrailingZeros64(^v))
		frame := Frame(word*64) + Frame(bit)
		if int(frame) >= a.total {
			break
		}
		a.bitmap[word] |= 1 << bit
		a.free--
		return frame, true
	}
	return 0, false
}
