package fsinode

import "sync"

// FreeSectorMap is a bitmap-based free-sector allocator. Allocation is
// mutated atomically per request under a single mutex — the "shared
// resource policy" in §5 requires only that, not lock-free structures.
type FreeSectorMap struct {
	mu    sync.Mutex
	bits  []bool
	base  uint32 // first allocatable sector; sectors below are reserved (boot, inode table, ...)
	total uint32
}

// NewFreeSectorMap tracks sectors [base, base+total).
func NewFreeSectorMap(base, total uint32) *FreeSectorMap {
	return &FreeSectorMap{bits: make([]bool, total), base: base, total: total}
}

// Alloc finds and marks the first free sector, returning ErrOutOfSpace if
// none remain.
func (f *FreeSectorMap) Alloc() (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, used := range f.bits {
		if !used {
			f.bits[i] = true
			return f.base + uint32(i), nil
		}
	}
	return 0, ErrOutOfSpace
}

// Free releases sector back to the pool.
func (f *FreeSectorMap) Free(sector uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := sector - f.base
	if idx >= uint32(len(f.bits)) {
		panic("fsinode: free of out-of-range sector")
	}
	f.bits[idx] = false
}

// Reserve marks sector as already used (for pre-allocated inode headers
// etc. during formatting).
func (f *FreeSectorMap) Reserve(sector uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := sector - f.base
	if idx < uint32(len(f.bits)) {
		f.bits[idx] = true
	}
}
