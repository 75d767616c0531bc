package vm

import (
	"sync"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
)

const sectorsPerPage = PageSize / blockdev.SectorSize

// SwapTable tracks which swap slots are in use over a raw block device,
// the Go counterpart of original_source's struct swap_table (a bitmap
// sized block_size(swap_block)*BLOCK_SECTOR_SIZE/PAGE_SIZE).
type SwapTable struct {
	mu     sync.Mutex
	dev    blockdev.Device
	used   []bool
	slots  int
	base   uint32
}

// NewSwapTable partitions dev, starting at sector base, into PageSize
// slots.
func NewSwapTable(dev blockdev.Device, base uint32) *SwapTable {
	total := dev.NumSectors()
	slots := int((total - base) / sectorsPerPage)
	return &SwapTable{dev: dev, used: make([]bool, slots), slots: slots, base: base}
}

// WriteOut allocates a free slot, writes data (exactly PageSize bytes)
// into it, and returns the slot index.
func (s *SwapTable) WriteOut(data []byte) (int, error) {
	if len(data) != PageSize {
		panic("vm: swap write of non-page-sized buffer")
	}
	s.mu.Lock()
	slot := -1
	for i, used := range s.used {
		if !used {
			s.used[i] = true
			slot = i
			break
		}
	}
	s.mu.Unlock()
	if slot == -1 {
		return 0, errNoFreeSwapSlot
	}

	base := s.base + uint32(slot*sectorsPerPage)
	for i := 0; i < sectorsPerPage; i++ {
		if err := s.dev.WriteSector(base+uint32(i), data[i*blockdev.SectorSize:(i+1)*blockdev.SectorSize]); err != nil {
			return slot, err
		}
	}
	return slot, nil
}

// ReadIn reads slot's page into buf (exactly PageSize bytes) without
// freeing it — freeing is the caller's responsibility once the page is
// paged back in.
func (s *SwapTable) ReadIn(slot int, buf []byte) error {
	if len(buf) != PageSize {
		panic("vm: swap read into non-page-sized buffer")
	}
	base := s.base + uint32(slot*sectorsPerPage)
	for i := 0; i < sectorsPerPage; i++ {
		if err := s.dev.ReadSector(base+uint32(i), buf[i*blockdev.SectorSize:(i+1)*blockdev.SectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// Free releases slot back to the pool.
func (s *SwapTable) Free(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[slot] = false
}
