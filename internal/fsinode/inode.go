package fsinode

import (
	"sync"

	"github.com/thomasltran/cfs-kernel-core/internal/cache"
)

// Inode is the in-memory handle to an on-disk inode header, shared by
// every opener via the process-wide open-inode set keyed by sector id.
type Inode struct {
	Sector uint32

	mu             sync.Mutex
	openCount      int
	removed        bool
	denyWriteCount int

	disk *OnDiskInode

	c    *cache.Cache
	free *FreeSectorMap
}

// Table is the process-wide open-inode set, deduplicating concurrent
// opens of the same sector into one shared *Inode.
type Table struct {
	mu    sync.Mutex
	open  map[uint32]*Inode
	c     *cache.Cache
	free  *FreeSectorMap
}

// NewTable builds an open-inode table over c, allocating new inode
// sectors (and their data) from free.
func NewTable(c *cache.Cache, free *FreeSectorMap) *Table {
	return &Table{open: make(map[uint32]*Inode), c: c, free: free}
}

// Create formats a fresh inode header at a freshly allocated sector and
// opens it.
func (t *Table) Create(isDir bool) (*Inode, error) {
	sector, err := t.free.Alloc()
	if err != nil {
		return nil, err
	}
	h := t.c.Get(sector, true)
	buf := t.c.ZeroData(h)
	copy(buf, NewOnDiskInode(isDir).Encode())
	t.c.MarkDirty(h)
	t.c.Release(h)

	return t.Open(sector)
}

// Open consults the open-inode set; a hit increments the in-memory open
// count and shares the existing object, a miss loads the header off disk.
func (t *Table) Open(sector uint32) (*Inode, error) {
	if sector == ReservedSector {
		panic(ErrStaleSector)
	}

	t.mu.Lock()
	if ino, ok := t.open[sector]; ok {
		ino.mu.Lock()
		ino.openCount++
		ino.mu.Unlock()
		t.mu.Unlock()
		return ino, nil
	}
	t.mu.Unlock()

	h := t.c.Get(sector, false)
	buf := t.c.ReadData(h)
	disk, err := DecodeOnDiskInode(buf)
	t.c.Release(h)
	if err != nil {
		return nil, ErrNotFound
	}

	ino := &Inode{Sector: sector, openCount: 1, disk: disk, c: t.c, free: t.free}

	t.mu.Lock()
	if existing, ok := t.open[sector]; ok {
		// another opener raced us while we read off disk; share theirs.
		existing.mu.Lock()
		existing.openCount++
		existing.mu.Unlock()
		t.mu.Unlock()
		return existing, nil
	}
	t.open[sector] = ino
	t.mu.Unlock()
	return ino, nil
}

// Close decrements ino's open count; at zero, if marked removed, every
// allocated sector (direct, indirect, doubly-indirect tree, and the
// header itself) is freed.
func (t *Table) Close(ino *Inode) error {
	ino.mu.Lock()
	ino.openCount--
	shouldFree := ino.openCount == 0 && ino.removed
	ino.mu.Unlock()

	if !shouldFree {
		return nil
	}

	if err := ino.freeAllSectors(); err != nil {
		return err
	}

	t.mu.Lock()
	delete(t.open, ino.Sector)
	t.mu.Unlock()

	t.free.Free(ino.Sector)
	return nil
}

// Remove marks ino for deletion; actual freeing happens when the last
// opener closes it.
func (ino *Inode) Remove() {
	ino.mu.Lock()
	ino.removed = true
	ino.mu.Unlock()
}

// DenyWrite/AllowWrite implement the deny_write_count mechanism that
// WriteAt consults.
func (ino *Inode) DenyWrite() {
	ino.mu.Lock()
	ino.denyWriteCount++
	ino.mu.Unlock()
}

func (ino *Inode) AllowWrite() {
	ino.mu.Lock()
	ino.denyWriteCount--
	ino.mu.Unlock()
}

// Length returns the inode's current length in bytes.
func (ino *Inode) Length() int64 {
	ino.mu.Lock()
	defer ino.mu.Unlock()
	return int64(ino.disk.Length)
}

func (ino *Inode) freeAllSectors() error {
	ino.mu.Lock()
	defer ino.mu.Unlock()

	for i, s := range ino.disk.Direct {
		if s != GapSector {
			ino.free.Free(s)
			ino.disk.Direct[i] = GapSector
		}
	}
	if ino.disk.Indirect != GapSector {
		blk, err := ino.readIndexBlock(ino.disk.Indirect)
		if err != nil {
			return err
		}
		for _, s := range blk {
			if s != GapSector {
				ino.free.Free(s)
			}
		}
		ino.free.Free(ino.disk.Indirect)
		ino.disk.Indirect = GapSector
	}
	if ino.disk.DoublyIndirect != GapSector {
		l2, err := ino.readIndexBlock(ino.disk.DoublyIndirect)
		if err != nil {
			return err
		}
		for _, l1sector := range l2 {
			if l1sector == GapSector {
				continue
			}
			l1, err := ino.readIndexBlock(l1sector)
			if err != nil {
				return err
			}
			for _, s := range l1 {
				if s != GapSector {
					ino.free.Free(s)
				}
			}
			ino.free.Free(l1sector)
		}
		ino.free.Free(ino.disk.DoublyIndirect)
		ino.disk.DoublyIndirect = GapSector
	}
	return nil
}

func (ino *Inode) readIndexBlock(sector uint32) (indexBlock, error) {
	h := ino.c.Get(sector, false)
	buf := ino.c.ReadData(h)
	blk := decodeIndexBlock(buf)
	ino.c.Release(h)
	return blk, nil
}

func (ino *Inode) writeIndexBlock(sector uint32, blk indexBlock) {
	h := ino.c.Get(sector, true)
	buf := ino.c.ZeroData(h)
	copy(buf, blk.encode())
	ino.c.MarkDirty(h)
	ino.c.Release(h)
}
