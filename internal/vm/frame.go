package vm

import (
	"github.com/thomasltran/cfs-kernel-core/internal/syncx"
)

// Frame is one physical page frame: a fixed PageSize slice of the arena
// plus the page currently occupying it. Mirrors original_source's
// struct frame (kaddr/thread/page/pinned) minus the thread back-pointer,
// which this package's callers already hold.
type Frame struct {
	index  int
	data   []byte
	page   *Page
	pinned bool
}

// Data returns the frame's backing PageSize bytes.
func (f *Frame) Data() []byte { return f.data }

// FrameTable is a fixed pool of NumFrames physical frames with a
// clock-hand eviction policy, replacing original_source's used/free
// lists plus a clock_elem list element.
type FrameTable struct {
	mu *syncx.Lock

	arena  []byte
	frames []*Frame
	free   []int // indices into frames not currently occupied
	clock  int   // next candidate frame index for the clock hand
}

// NewFrameTable allocates an arena of n physical frames.
func NewFrameTable(n int) *FrameTable {
	ft := &FrameTable{
		mu:    syncx.NewLock("vm.frametable"),
		arena: make([]byte, n*PageSize),
	}
	ft.frames = make([]*Frame, n)
	for i := 0; i < n; i++ {
		ft.frames[i] = &Frame{index: i, data: ft.arena[i*PageSize : (i+1)*PageSize]}
		ft.free = append(ft.free, i)
	}
	return ft
}

// NumFrames returns the frame table's fixed capacity.
func (ft *FrameTable) NumFrames() int { return len(ft.frames) }

// Acquire returns a frame for page, taking one off the free list if any
// remain, otherwise running the clock eviction sweep to reclaim one.
// The returned frame is pinned; callers must Unpin it once the page's
// data has been installed.
func (ft *FrameTable) Acquire(page *Page) (*Frame, *Page, error) {
	ft.mu.Acquire(0)
	defer ft.mu.Release(0)

	if len(ft.free) > 0 {
		idx := ft.free[len(ft.free)-1]
		ft.free = ft.free[:len(ft.free)-1]
		f := ft.frames[idx]
		f.page = page
		f.pinned = true
		page.frame = f
		return f, nil, nil
	}

	idx, err := ft.clockEvict()
	if err != nil {
		return nil, nil, err
	}
	f := ft.frames[idx]
	victim := f.page
	f.page = page
	f.pinned = true
	page.frame = f
	return f, victim, nil
}

// clockEvict advances the clock hand past pinned frames and returns the
// index of the first unpinned one it reaches. Frames carry no accessed
// bit, so every unpinned frame is chosen in turn. Caller holds ft.mu.
func (ft *FrameTable) clockEvict() (int, error) {
	n := len(ft.frames)
	for scanned := 0; scanned < 2*n; scanned++ {
		idx := ft.clock
		ft.clock = (ft.clock + 1) % n
		f := ft.frames[idx]
		if f.pinned {
			continue
		}
		return idx, nil
	}
	return 0, errNoEvictableFrame
}

// Unpin releases a frame back to being evictable once its page's data is
// fully installed.
func (ft *FrameTable) Unpin(f *Frame) {
	ft.mu.Acquire(0)
	f.pinned = false
	ft.mu.Release(0)
}

// Release returns f to the free list, detaching it from its page. Used
// when a page is destroyed outright (munmap, thread exit) rather than
// evicted to swap.
func (ft *FrameTable) Release(f *Frame) {
	ft.mu.Acquire(0)
	if f.page != nil {
		f.page.frame = nil
		f.page.Location = PagedOut
	}
	f.page = nil
	f.pinned = false
	ft.free = append(ft.free, f.index)
	ft.mu.Release(0)
}
